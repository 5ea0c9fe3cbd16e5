package watch_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/internal/feedtest"
	"prepfeed/internal/metrics"
	"prepfeed/internal/notify"
	"prepfeed/internal/watch"
)

func TestWatcher(t *testing.T) {
	var loads atomic.Int32
	refreshed := make(chan struct{}, 16)

	posts := feedtest.Posts("p", "u1", 5)
	backend := &feedtest.Backend{
		FeedFunc: func(_ context.Context, _, _ int) (*core.Page, error) {
			// Every refresh reveals one more post.
			n := min(int(loads.Add(1))+1, len(posts))
			refreshed <- struct{}{}
			return &core.Page{Items: posts[:n]}, nil
		},
	}

	watcher := &watch.Watcher{
		Logger:  slog.New(slog.DiscardHandler),
		Config:  &config.Config{PageSize: 10, RefreshInterval: time.Millisecond},
		Backend: backend,
		Toaster: notify.Discard,
	}
	require.NoError(t, watcher.Init(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx)
	}()

	for range 4 {
		<-refreshed
	}
	cancel()
	require.NoError(t, <-done)
	require.NoError(t, watcher.Shutdown(t.Context()))

	require.GreaterOrEqual(t, watcher.Seen(), 4)
	require.GreaterOrEqual(t, testutil.ToFloat64(metrics.FeedItems), float64(3))
}
