package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"

	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/pkg/feedapi"
	"prepfeed/pkg/retry"
)

var ErrNoAPIURL = errors.New("backend API URL is not configured")

var readRetry = retry.Policy{Attempts: 3, Delay: 200 * time.Millisecond}

// Service is the REST backend. Reads are retried on transient failures, writes are sent once.
type Service struct {
	Logger *slog.Logger
	Config *config.Config

	client *feedapi.Client
}

func (s *Service) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "backend.Service")

	if s.Config.APIURL == "" {
		return ErrNoAPIURL
	}

	requestMiddlewares := []resty.RequestMiddleware{requestIDMiddleware}
	if s.Config.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(s.Config.RateLimit), 1)
		requestMiddlewares = append(requestMiddlewares, rateLimitMiddleware(limiter))
	}

	timeout := s.Config.Timeout
	if timeout <= 0 {
		timeout = feedapi.DefaultConfig.Timeout
	}

	s.client = feedapi.NewClient(&feedapi.ClientConfig{
		BaseURL:             s.Config.APIURL,
		Token:               s.Config.Token,
		Timeout:             timeout,
		TransportSettings:   feedapi.DefaultConfig.TransportSettings,
		RequestMiddlewares:  requestMiddlewares,
		ResponseMiddlewares: []resty.ResponseMiddleware{loggingMiddleware(s.Logger), metricMiddleware},
	})

	s.Logger.Debug("backend client configured", "url", s.Config.APIURL, "rate_limit", s.Config.RateLimit)
	return nil
}

func (s *Service) Shutdown(_ context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Service) Feed(ctx context.Context, page, limit int) (*core.Page, error) {
	return read(ctx, s, "feed", func(ctx context.Context) (*core.Page, error) {
		return s.client.Feed(ctx, page, limit)
	})
}

func (s *Service) Post(ctx context.Context, postID string) (*core.Post, error) {
	return read(ctx, s, "post", func(ctx context.Context) (*core.Post, error) {
		return s.client.Post(ctx, postID)
	})
}

func (s *Service) Comments(ctx context.Context, postID string) ([]*core.Comment, error) {
	return read(ctx, s, "comments", func(ctx context.Context) ([]*core.Comment, error) {
		return s.client.Comments(ctx, postID)
	})
}

func (s *Service) Like(ctx context.Context, postID string) error {
	return s.client.Like(ctx, postID)
}

func (s *Service) Unlike(ctx context.Context, postID string) error {
	return s.client.Unlike(ctx, postID)
}

func (s *Service) Vote(ctx context.Context, postID string, optionIndex int) error {
	return s.client.Vote(ctx, postID, optionIndex)
}

func (s *Service) UpdatePost(ctx context.Context, postID string, update core.PostUpdate) (*core.Post, error) {
	return s.client.UpdatePost(ctx, postID, update)
}

func (s *Service) DeletePost(ctx context.Context, postID string) error {
	return s.client.DeletePost(ctx, postID)
}

func (s *Service) AddComment(ctx context.Context, postID string, draft core.CommentDraft) (*core.Comment, error) {
	return s.client.AddComment(ctx, postID, draft)
}

func (s *Service) DeleteComment(ctx context.Context, postID, commentID string) error {
	return s.client.DeleteComment(ctx, postID, commentID)
}

func read[T any](ctx context.Context, s *Service, op string, f func(ctx context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, readRetry, func(err error, attempt int) bool {
		if !errors.Is(err, core.ErrTransient) {
			return false
		}
		s.Logger.Warn("retrying read", "op", op, "attempt", attempt, "error", err)
		return true
	}, f)
}
