package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"prepfeed/internal/core"
	"prepfeed/internal/metrics"
	"prepfeed/internal/notify"
	"prepfeed/pkg/async"
)

var (
	ErrEmptyComment    = errors.New("comment is empty")
	ErrNotAuthor       = errors.New("comment belongs to another user")
	ErrCommentNotFound = errors.New("comment not found")
	ErrInFlight        = errors.New("the same action is already in progress")
	ErrLoadFailed      = errors.New("failed to load comments")
	ErrClosed          = errors.New("comment panel is closed")
)

const (
	kindAdd    = "comment_add"
	kindDelete = "comment_delete"
)

// Counter receives advisory changes of a post's comment count.
type Counter interface {
	AdjustCommentCount(postID string, delta int)
}

type nopCounter struct{}

func (nopCounter) AdjustCommentCount(string, int) {}

// State is a snapshot of a comment panel.
type State struct {
	PostID     string
	Comments   []*core.Comment
	Total      int
	Loading    bool
	Submitting bool
	// Err is set when the last fetch failed. The panel must be reopened to retry.
	Err   error
	Draft string
}

type options struct {
	logger       *slog.Logger
	toaster      core.Toaster
	counter      Counter
	postAuthorID string
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

func WithCounter(counter Counter) Option {
	return func(o *options) {
		o.counter = counter
	}
}

// WithPostAuthor lets the author of the post delete any comment under it.
func WithPostAuthor(userID string) Option {
	return func(o *options) {
		o.postAuthorID = userID
	}
}

// Panel holds the comments of a single post while its comment screen is open.
type Panel struct {
	postID       string
	postAuthorID string
	backend      core.Backend
	logger       *slog.Logger
	toaster      core.Toaster
	counter      Counter

	mu         sync.Mutex
	tree       *Tree
	loading    bool
	submitting bool
	err        error
	draft      string
	closed     bool

	updates *async.Broadcast[State]
}

func NewPanel(backend core.Backend, postID string, opts ...Option) *Panel {
	o := options{
		logger:  slog.Default(),
		toaster: notify.Discard,
		counter: nopCounter{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Panel{
		postID:       postID,
		postAuthorID: o.postAuthorID,
		backend:      backend,
		logger:       o.logger.With("component", "comments.Panel", "post", postID),
		toaster:      o.toaster,
		counter:      o.counter,
		tree:         NewTree(nil),
		updates:      async.NewBroadcast[State](),
	}
	p.updates.Publish(p.snapshotLocked())

	return p
}

func (p *Panel) PostID() string {
	return p.postID
}

func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshotLocked()
}

// Subscribe returns a channel of panel snapshots, starting with the current one.
func (p *Panel) Subscribe() (<-chan State, func()) {
	return p.updates.Subscribe()
}

// Open fetches the comments of the post and rebuilds the tree. A failed fetch leaves the panel in an
// error state until the next Open.
func (p *Panel) Open(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.loading {
		p.mu.Unlock()
		return ErrInFlight
	}
	p.loading = true
	p.err = nil
	p.publishLocked()
	p.mu.Unlock()

	return p.fetch(ctx)
}

func (p *Panel) fetch(ctx context.Context) error {
	flat, err := p.backend.Comments(ctx, p.postID)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.loading = false

	if err != nil {
		p.logger.Warn("failed to load comments", "error", err)
		p.err = fmt.Errorf("%w: %w", ErrLoadFailed, err)
		p.publishLocked()
		return p.err
	}

	p.tree.Rebuild(flat)
	p.publishLocked()

	p.logger.Debug("comments loaded", "comments", p.tree.Len())
	return nil
}

// SetDraft replaces the text of the compose input.
func (p *Panel) SetDraft(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.draft = content
	p.publishLocked()
}

// Submit posts the draft as a top-level comment, or as a reply to parentID. The comment list is
// re-fetched once the backend accepts it; a rejected comment keeps the draft for another attempt.
// A reply to a reply is posted to the top-level comment of its thread.
func (p *Panel) Submit(ctx context.Context, parentID string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	content := strings.TrimSpace(p.draft)
	if content == "" {
		p.mu.Unlock()
		observe(kindAdd, "rejected")
		return ErrEmptyComment
	}
	if p.submitting {
		p.mu.Unlock()
		return ErrInFlight
	}
	if parentID != "" {
		parent, ok := p.tree.Find(parentID)
		if !ok {
			p.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrCommentNotFound, parentID)
		}
		// Replies are one level deep: answering a reply answers its thread.
		if parent.IsReply() {
			parentID = parent.ParentID
		}
	}

	p.submitting = true
	p.publishLocked()
	p.mu.Unlock()

	comment, err := p.backend.AddComment(ctx, p.postID, core.CommentDraft{Content: content, ParentID: parentID})

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.submitting = false

	if err != nil {
		p.publishLocked()
		p.mu.Unlock()

		observe(kindAdd, "failed")
		p.logger.Warn("failed to add comment", "parent", parentID, "error", err)
		if !errors.Is(err, core.ErrValidation) {
			p.toaster.Toast(ctx, core.Toast{Level: core.ToastError, Message: "Could not post comment", Err: err})
		}
		return fmt.Errorf("adding comment to %s: %w", p.postID, err)
	}

	p.draft = ""
	p.loading = true
	p.publishLocked()
	p.mu.Unlock()

	p.counter.AdjustCommentCount(p.postID, 1)
	observe(kindAdd, "confirmed")
	p.logger.Debug("comment added", "comment", comment.ID, "parent", parentID)

	// A failed re-fetch is reported through State.Err.
	p.fetch(ctx) //nolint:errcheck
	return nil
}

// Delete removes a comment, with its replies, from view and asks the backend to delete it. The comment
// is not restored when the backend fails.
func (p *Panel) Delete(ctx context.Context, userID, commentID string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	comment, ok := p.tree.Find(commentID)
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCommentNotFound, commentID)
	}
	if comment.AuthorID != userID && p.postAuthorID != userID {
		p.mu.Unlock()
		observe(kindDelete, "rejected")
		return ErrNotAuthor
	}
	removed := p.tree.RemoveLocally(commentID)
	p.publishLocked()
	p.mu.Unlock()

	p.counter.AdjustCommentCount(p.postID, -removed)

	err := p.backend.DeleteComment(ctx, p.postID, commentID)

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if err != nil {
		observe(kindDelete, "failed")
		p.logger.Warn("failed to delete comment", "comment", commentID, "error", err)
		if !closed {
			p.toaster.Toast(ctx, core.Toast{Level: core.ToastError, Message: "Could not delete comment", Err: err})
		}
		return fmt.Errorf("deleting comment %s: %w", commentID, err)
	}

	observe(kindDelete, "confirmed")
	p.logger.Debug("comment deleted", "comment", commentID, "removed", removed)
	return nil
}

// Close detaches the panel. Requests in flight are not cancelled, their results are ignored.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.updates.Close()
}

func (p *Panel) snapshotLocked() State {
	return State{
		PostID:     p.postID,
		Comments:   p.tree.Comments(),
		Total:      p.tree.Len(),
		Loading:    p.loading,
		Submitting: p.submitting,
		Err:        p.err,
		Draft:      p.draft,
	}
}

func (p *Panel) publishLocked() {
	if p.closed {
		return
	}
	p.updates.Publish(p.snapshotLocked())
}

func observe(kind, outcome string) {
	metrics.Mutations.WithLabelValues(kind, outcome).Inc()
}
