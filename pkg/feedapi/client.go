package feedapi

import (
	"context"
	"fmt"
	"net/http"

	"resty.dev/v3"

	"prepfeed/internal/core"
)

type Client struct {
	client *resty.Client
}

func NewClient(cfg *ClientConfig) *Client {
	settings := cfg.TransportSettings
	if settings == nil {
		settings = DefaultConfig.TransportSettings
	}

	client := resty.NewWithTransportSettings(settings)
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	for _, m := range cfg.RequestMiddlewares {
		client.AddRequestMiddleware(m)
	}
	for _, m := range cfg.ResponseMiddlewares {
		client.AddResponseMiddleware(m)
	}

	return &Client{
		client: client,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx)
}

// do executes the request and returns the raw body of a successful response.
func (c *Client) do(req *resty.Request, method, path string) ([]byte, error) {
	req = req.WithContext(context.WithValue(req.Context(), routeKey{}, path))

	res, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", core.ErrTransient, method, path, err)
	}

	if res.IsError() {
		return nil, classify(res.StatusCode(), res.Bytes())
	}

	return res.Bytes(), nil
}

func (c *Client) get(req *resty.Request, path string) ([]byte, error) {
	return c.do(req, http.MethodGet, path)
}

type routeKey struct{}

// Route returns the path template a request was made for, such as "/posts/{id}".
func Route(req *resty.Request) string {
	route, _ := req.Context().Value(routeKey{}).(string)
	return route
}
