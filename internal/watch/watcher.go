package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/internal/feed"
	"prepfeed/internal/metrics"
)

const defaultInterval = 30 * time.Second

// Watcher keeps the first page of the feed fresh and logs posts it has not seen before.
type Watcher struct {
	Logger  *slog.Logger
	Config  *config.Config
	Backend core.Backend
	Toaster core.Toaster

	store *feed.Store
	seen  map[string]struct{}
}

func (w *Watcher) Init(_ context.Context) error {
	w.Logger = w.Logger.With("component", "watch.Watcher")

	w.store = feed.NewStore(w.Backend,
		feed.WithLogger(w.Logger),
		feed.WithToaster(w.Toaster),
		feed.WithPageSize(w.Config.PageSize),
	)
	w.seen = map[string]struct{}{}

	return nil
}

func (w *Watcher) Shutdown(_ context.Context) error {
	w.store.Close()
	return nil
}

func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Config.RefreshInterval
	if interval <= 0 {
		interval = defaultInterval
	}

	if err := w.store.LoadFirstPage(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		w.Logger.Error("initial feed load failed, retrying on the next tick", "error", err)
	}
	w.collect()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.store.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
			w.collect()
		}
	}
}

// collect updates the gauge and logs posts that appeared since the last refresh.
func (w *Watcher) collect() {
	state := w.store.State()
	metrics.FeedItems.Set(float64(len(state.Items)))

	for _, post := range state.Items {
		if _, ok := w.seen[post.ID]; ok {
			continue
		}
		w.seen[post.ID] = struct{}{}

		w.Logger.Info("new post",
			"id", post.ID,
			"author", post.AuthorID,
			"kind", post.Kind,
			"likes", post.LikeCount,
			"comments", post.CommentCount,
		)
	}
}

// Seen returns how many distinct posts the watcher has logged.
func (w *Watcher) Seen() int {
	return len(w.seen)
}
