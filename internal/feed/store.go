package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"prepfeed/internal/core"
	"prepfeed/internal/metrics"
	"prepfeed/internal/notify"
	"prepfeed/pkg/async"
)

const DefaultPageSize = 10

var (
	ErrLoadFailed   = errors.New("failed to load feed")
	ErrClosed       = errors.New("feed is closed")
	ErrPostNotFound = errors.New("post is not in the feed")
)

const (
	loadFirst   = "first"
	loadNext    = "next"
	loadRefresh = "refresh"
)

// State is an immutable snapshot of the feed handed to subscribers.
type State struct {
	Items      []*core.Post
	Page       int
	HasMore    bool
	Loading    bool
	Refreshing bool
}

type options struct {
	logger   *slog.Logger
	toaster  core.Toaster
	pageSize int
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithToaster(toaster core.Toaster) Option {
	return func(o *options) {
		o.toaster = toaster
	}
}

func WithPageSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// Store is the client's view of a paginated feed. It is owned by a single screen.
type Store struct {
	backend  core.Backend
	logger   *slog.Logger
	toaster  core.Toaster
	pageSize int

	mu         sync.Mutex
	items      []*core.Post
	page       int
	hasMore    bool
	loading    bool
	refreshing bool
	closed     bool

	// generation is bumped by every reload; page loads started in an older generation are discarded.
	generation uint64
	// pending counts optimistic mutations in flight per post.
	pending map[string]int
	// busy holds "<kind>:<post id>" of every mutation in flight.
	busy map[string]struct{}

	updates *async.Broadcast[State]
}

func NewStore(backend core.Backend, opts ...Option) *Store {
	o := options{
		logger:   slog.Default(),
		toaster:  notify.Discard,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store{
		backend:  backend,
		logger:   o.logger.With("component", "feed.Store"),
		toaster:  o.toaster,
		pageSize: o.pageSize,
		hasMore:  true,
		pending:  map[string]int{},
		busy:     map[string]struct{}{},
		updates:  async.NewBroadcast[State](),
	}
	s.updates.Publish(s.snapshotLocked())

	return s
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Subscribe returns a channel of state snapshots, starting with the current one.
func (s *Store) Subscribe() (<-chan State, func()) {
	return s.updates.Subscribe()
}

// Post returns a copy of the post with the given id.
func (s *Store) Post(postID string) (*core.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post := s.findLocked(postID)
	return post.Clone(), post != nil
}

// LoadFirstPage replaces the feed with its first page.
func (s *Store) LoadFirstPage(ctx context.Context) error {
	return s.reload(ctx, loadFirst)
}

// Refresh reloads the first page for pull-to-refresh. Posts with an optimistic mutation in flight keep
// their local state.
func (s *Store) Refresh(ctx context.Context) error {
	return s.reload(ctx, loadRefresh)
}

func (s *Store) reload(ctx context.Context, mode string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	if mode == loadRefresh {
		s.hasMore = true
	}
	s.generation++
	gen := s.generation
	s.refreshing = true
	s.loading = false
	s.publishLocked()
	s.mu.Unlock()

	page, err := s.backend.Feed(ctx, 1, s.pageSize)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded feed page", "mode", mode)
		return nil
	}
	s.refreshing = false

	if err != nil {
		s.publishLocked()
		s.mu.Unlock()
		return s.loadFailed(ctx, mode, 1, err)
	}

	s.items = s.mergeLocked(page.Items)
	s.page = 1
	s.hasMore = page.HasNextPage
	items, hasMore := len(s.items), s.hasMore
	s.publishLocked()
	s.mu.Unlock()

	metrics.FeedLoads.WithLabelValues(mode, "success").Inc()
	s.logger.Debug("feed loaded", "mode", mode, "items", items, "has_more", hasMore)

	return nil
}

// LoadNextPage appends the next page. It does nothing when the feed is exhausted, a page is already
// being loaded or the first page is being reloaded.
func (s *Store) LoadNextPage(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.hasMore || s.loading || s.refreshing {
		s.mu.Unlock()
		return nil
	}

	s.loading = true
	gen := s.generation
	next := s.page + 1
	s.publishLocked()
	s.mu.Unlock()

	page, err := s.backend.Feed(ctx, next, s.pageSize)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded feed page", "page", next)
		return nil
	}
	s.loading = false

	if err != nil {
		s.publishLocked()
		s.mu.Unlock()
		return s.loadFailed(ctx, loadNext, next, err)
	}

	s.items = s.appendLocked(page.Items)
	s.page = next
	s.hasMore = page.HasNextPage
	items, hasMore := len(s.items), s.hasMore
	s.publishLocked()
	s.mu.Unlock()

	metrics.FeedLoads.WithLabelValues(loadNext, "success").Inc()
	s.logger.Debug("feed page appended", "page", next, "items", items, "has_more", hasMore)

	return nil
}

// LoadPost fetches a single post into the feed, for example when it is opened from a link. A post
// already in the feed is replaced unless a mutation of it is in flight.
func (s *Store) LoadPost(ctx context.Context, postID string) (*core.Post, error) {
	post, err := s.backend.Post(ctx, postID)
	if err != nil {
		s.logger.Warn("failed to load post", "post", postID, "error", err)
		return nil, fmt.Errorf("loading post %s: %w", postID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return post, nil
	}

	switch i := s.indexLocked(post.ID); {
	case i < 0:
		s.items = append(s.items, post.Clone())
	case s.pending[post.ID] == 0:
		s.items[i] = post.Clone()
	default:
		post = s.items[i].Clone()
	}
	s.publishLocked()

	return post, nil
}

// Reconcile replaces the local copy of a post with the server's, or drops it when the server no longer
// has it. A post with an optimistic mutation in flight keeps its local copy.
func (s *Store) Reconcile(ctx context.Context, postID string) error {
	post, err := s.backend.Post(ctx, postID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	switch {
	case s.pending[postID] > 0:
		s.logger.Debug("keeping pending post", "post", postID)
		return nil
	case errors.Is(err, core.ErrNotFound):
		s.removeLocked(postID)
	case err != nil:
		return fmt.Errorf("reconciling post %s: %w", postID, err)
	default:
		if i := s.indexLocked(postID); i >= 0 {
			s.items[i] = post.Clone()
		}
	}

	s.publishLocked()
	return nil
}

// AdjustCommentCount applies an advisory change to a post's comment counter.
func (s *Store) AdjustCommentCount(postID string, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post := s.findLocked(postID)
	if s.closed || post == nil {
		return
	}

	post.CommentCount = max(0, post.CommentCount+delta)
	s.publishLocked()
}

// Close detaches the store from its screen. Requests already in flight are not cancelled, their
// results are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.updates.Close()
}

func (s *Store) loadFailed(ctx context.Context, mode string, page int, err error) error {
	metrics.FeedLoads.WithLabelValues(mode, "failure").Inc()
	s.logger.Warn("failed to load feed", "mode", mode, "page", page, "error", err)

	err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
	s.toaster.Toast(ctx, core.Toast{Level: core.ToastError, Message: "Failed to load feed", Err: err})

	return err
}

// mergeLocked builds the item list of a reloaded first page.
func (s *Store) mergeLocked(fetched []*core.Post) []*core.Post {
	return lo.Map(lo.UniqBy(fetched, idOf), func(post *core.Post, _ int) *core.Post {
		if s.pending[post.ID] > 0 {
			if local := s.findLocked(post.ID); local != nil {
				return local
			}
		}
		return post.Clone()
	})
}

func (s *Store) appendLocked(fetched []*core.Post) []*core.Post {
	seen := lo.KeyBy(s.items, idOf)

	items := s.items
	for _, post := range fetched {
		if _, ok := seen[post.ID]; ok {
			continue
		}
		seen[post.ID] = post
		items = append(items, post.Clone())
	}
	return items
}

func (s *Store) indexLocked(id string) int {
	_, i, ok := lo.FindIndexOf(s.items, func(post *core.Post) bool {
		return post.ID == id
	})
	if !ok {
		return -1
	}
	return i
}

func (s *Store) findLocked(id string) *core.Post {
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i]
	}
	return nil
}

func (s *Store) removeLocked(id string) bool {
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return true
}

func (s *Store) snapshotLocked() State {
	return State{
		Items: lo.Map(s.items, func(post *core.Post, _ int) *core.Post {
			return post.Clone()
		}),
		Page:       s.page,
		HasMore:    s.hasMore,
		Loading:    s.loading,
		Refreshing: s.refreshing,
	}
}

func (s *Store) publishLocked() {
	if s.closed {
		return
	}
	s.updates.Publish(s.snapshotLocked())
}

func idOf(post *core.Post) string {
	return post.ID
}
