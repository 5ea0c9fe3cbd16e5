package backend

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"prepfeed/internal/metrics"
	"prepfeed/pkg/feedapi"
)

const HeaderRequestID = "X-Request-ID"

func requestIDMiddleware(_ *resty.Client, req *resty.Request) error {
	id := uuid.NewString()

	req.SetHeader(HeaderRequestID, id)
	if req.RawRequest != nil {
		req.RawRequest.Header.Set(HeaderRequestID, id)
	}
	return nil
}

func rateLimitMiddleware(limiter *rate.Limiter) resty.RequestMiddleware {
	return func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	}
}

func loggingMiddleware(logger *slog.Logger) resty.ResponseMiddleware {
	return func(_ *resty.Client, res *resty.Response) error {
		logger.Debug("request",
			"method", res.Request.Method,
			"path", routeOf(res.Request),
			"status", res.StatusCode(),
			"duration", res.Duration(),
			"request_id", res.Request.Header.Get(HeaderRequestID),
		)
		return nil
	}
}

func metricMiddleware(_ *resty.Client, res *resty.Response) error {
	metrics.APILatency.WithLabelValues(
		res.Request.Method,
		routeOf(res.Request),
		fmt.Sprintf("%d", res.StatusCode()),
	).Observe(res.Duration().Seconds())

	return nil
}

// routeOf prefers the path template, so that post ids do not end up in labels.
func routeOf(req *resty.Request) string {
	if route := feedapi.Route(req); route != "" {
		return route
	}

	reqURL, err := url.Parse(req.URL)
	if err != nil {
		return req.URL
	}
	return reqURL.Path
}
