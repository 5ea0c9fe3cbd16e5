package feedapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Jeffail/gabs"

	"prepfeed/internal/core"
)

const (
	feedPath = "/posts/feed"
	postPath = "/posts/{id}"
	likePath = "/posts/{id}/like"
	votePath = "/posts/{id}/vote"
)

// Feed fetches one page of the feed. Pages start at 1.
func (c *Client) Feed(ctx context.Context, page, limit int) (*core.Page, error) {
	body, err := c.get(
		c.r(ctx).
			SetQueryParam("page", strconv.Itoa(page)).
			SetQueryParam("limit", strconv.Itoa(limit)),
		feedPath,
	)
	if err != nil {
		return nil, err
	}

	items, pages, err := feedPayload(body)
	if err != nil {
		return nil, err
	}

	var posts []*post
	if items != nil {
		if err := decodeContainer(items, &posts); err != nil {
			return nil, err
		}
	}

	var paging pagination
	if pages != nil {
		if err := decodeContainer(pages, &paging); err != nil {
			return nil, err
		}
	}

	converted, err := postsToCore(posts)
	if err != nil {
		return nil, err
	}

	return &core.Page{
		Items:       converted,
		HasNextPage: paging.HasNextPage,
	}, nil
}

func (c *Client) Post(ctx context.Context, postID string) (*core.Post, error) {
	body, err := c.get(c.r(ctx).SetPathParam("id", postID), postPath)
	if err != nil {
		return nil, err
	}
	return decodePost(body)
}

func (c *Client) Like(ctx context.Context, postID string) error {
	_, err := c.do(c.r(ctx).SetPathParam("id", postID), http.MethodPost, likePath)
	return err
}

func (c *Client) Unlike(ctx context.Context, postID string) error {
	_, err := c.do(c.r(ctx).SetPathParam("id", postID), http.MethodDelete, likePath)
	return err
}

func (c *Client) Vote(ctx context.Context, postID string, optionIndex int) error {
	_, err := c.do(
		c.r(ctx).
			SetPathParam("id", postID).
			SetBody(voteBody{OptionIndex: optionIndex}),
		http.MethodPost, votePath,
	)
	return err
}

func (c *Client) UpdatePost(ctx context.Context, postID string, update core.PostUpdate) (*core.Post, error) {
	body, err := c.do(
		c.r(ctx).
			SetPathParam("id", postID).
			SetBody(postUpdateBody{
				Content:  update.Content,
				Hashtags: update.Hashtags,
				Images:   update.Images,
			}),
		http.MethodPut, postPath,
	)
	if err != nil {
		return nil, err
	}
	return decodePost(body)
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	_, err := c.do(c.r(ctx).SetPathParam("id", postID), http.MethodDelete, postPath)
	return err
}

// feedPayload locates the item list and the pagination block. Both may sit at any envelope level,
// and the item list may itself be the "data" member next to "pagination".
func feedPayload(body []byte) (*gabs.Container, *gabs.Container, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil, fmt.Errorf("%w: empty body", core.ErrDecode)
	}

	level, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}

	for range maxEnvelopeDepth + 1 {
		if _, ok := level.Data().([]interface{}); ok {
			return level, nil, nil
		}

		pages := field(level, "pagination")
		for _, key := range []string{"items", "posts"} {
			if items := field(level, key); items != nil {
				return items, pages, nil
			}
		}

		data := field(level, "data")
		if data == nil {
			break
		}
		if _, ok := data.Data().([]interface{}); ok {
			return data, pages, nil
		}
		level = data
	}

	return nil, nil, fmt.Errorf("%w: feed response without items", core.ErrDecode)
}

func decodePost(body []byte) (*core.Post, error) {
	var p post
	if err := decode(body, &p); err != nil {
		return nil, err
	}

	converted, err := p.toCore()
	if err != nil {
		return nil, fmt.Errorf("decoding post: %w", err)
	}
	return converted, nil
}
