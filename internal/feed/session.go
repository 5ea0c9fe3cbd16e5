package feed

import (
	"context"
	"log/slog"
	"sync"

	"prepfeed/internal/comments"
	"prepfeed/internal/core"
	"prepfeed/internal/notify"
	"prepfeed/pkg/async"
)

// Session is the feed screen of a signed-in user. Actions run in the background and are not cancelled
// when the session closes; whatever they return afterwards is ignored.
type Session struct {
	userID  string
	backend core.Backend
	logger  *slog.Logger
	toaster core.Toaster

	store   *Store
	mutator *Mutator

	jobs sync.WaitGroup

	mu     sync.Mutex
	panels map[string]*comments.Panel
}

func NewSession(backend core.Backend, userID string, opts ...Option) *Session {
	o := options{
		logger:  slog.Default(),
		toaster: notify.Discard,
	}
	for _, opt := range opts {
		opt(&o)
	}

	store := NewStore(backend, opts...)

	return &Session{
		userID:  userID,
		backend: backend,
		logger:  o.logger,
		toaster: o.toaster,
		store:   store,
		mutator: NewMutator(store),
		panels:  map[string]*comments.Panel{},
	}
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Store() *Store {
	return s.store
}

func (s *Session) State() State {
	return s.store.State()
}

func (s *Session) Subscribe() (<-chan State, func()) {
	return s.store.Subscribe()
}

func (s *Session) LoadFirstPage() *async.JobHandle[struct{}] {
	return run(s, s.store.LoadFirstPage)
}

func (s *Session) LoadNextPage() *async.JobHandle[struct{}] {
	return run(s, s.store.LoadNextPage)
}

func (s *Session) Refresh() *async.JobHandle[struct{}] {
	return run(s, s.store.Refresh)
}

func (s *Session) LoadPost(postID string) *async.JobHandle[*core.Post] {
	return dispatch(s, func(ctx context.Context) (*core.Post, error) {
		return s.store.LoadPost(ctx, postID)
	})
}

func (s *Session) ToggleLike(postID string) *async.JobHandle[struct{}] {
	return run(s, func(ctx context.Context) error {
		return s.mutator.ToggleLike(ctx, s.userID, postID)
	})
}

func (s *Session) VoteOnPoll(postID string, optionIndex int) *async.JobHandle[struct{}] {
	return run(s, func(ctx context.Context) error {
		return s.mutator.VoteOnPoll(ctx, s.userID, postID, optionIndex)
	})
}

func (s *Session) UpdatePost(postID string, update core.PostUpdate) *async.JobHandle[*core.Post] {
	return dispatch(s, func(ctx context.Context) (*core.Post, error) {
		return s.mutator.UpdatePost(ctx, s.userID, postID, update)
	})
}

func (s *Session) DeletePost(postID string, confirmer core.Confirmer) *async.JobHandle[bool] {
	return dispatch(s, func(ctx context.Context) (bool, error) {
		return s.mutator.DeletePost(ctx, s.userID, postID, confirmer)
	})
}

// OpenComments opens the comment panel of a post and starts loading its comments. A panel already open
// for the same post is closed.
func (s *Session) OpenComments(postID string) (*comments.Panel, *async.JobHandle[struct{}]) {
	opts := []comments.Option{
		comments.WithLogger(s.logger),
		comments.WithToaster(s.toaster),
		comments.WithCounter(s.store),
	}
	if post, ok := s.store.Post(postID); ok {
		opts = append(opts, comments.WithPostAuthor(post.AuthorID))
	}
	panel := comments.NewPanel(s.backend, postID, opts...)

	s.mu.Lock()
	if prev, ok := s.panels[postID]; ok {
		prev.Close()
	}
	s.panels[postID] = panel
	s.mu.Unlock()

	return panel, run(s, panel.Open)
}

// SubmitComment posts the panel's draft as a comment, or as a reply to parentID.
func (s *Session) SubmitComment(panel *comments.Panel, parentID string) *async.JobHandle[struct{}] {
	return run(s, func(ctx context.Context) error {
		return panel.Submit(ctx, parentID)
	})
}

func (s *Session) DeleteComment(panel *comments.Panel, commentID string) *async.JobHandle[struct{}] {
	return run(s, func(ctx context.Context) error {
		return panel.Delete(ctx, s.userID, commentID)
	})
}

// CloseComments closes the comment panel of a post.
func (s *Session) CloseComments(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if panel, ok := s.panels[postID]; ok {
		panel.Close()
		delete(s.panels, postID)
	}
}

// Wait blocks until every dispatched action returned.
func (s *Session) Wait() {
	s.jobs.Wait()
}

// Close detaches the session and its comment panels from the screen.
func (s *Session) Close() {
	s.mu.Lock()
	for postID, panel := range s.panels {
		panel.Close()
		delete(s.panels, postID)
	}
	s.mu.Unlock()

	s.store.Close()
}

func dispatch[T any](s *Session, job func(ctx context.Context) (T, error)) *async.JobHandle[T] {
	s.jobs.Add(1)

	return async.Job(func(ctx context.Context) (T, error) {
		defer s.jobs.Done()
		return job(ctx)
	})
}

func run(s *Session, job func(ctx context.Context) error) *async.JobHandle[struct{}] {
	return dispatch(s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, job(ctx)
	})
}
