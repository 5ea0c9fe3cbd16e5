// Package feedtest provides in-memory fakes for testing feed and comment state.
package feedtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"prepfeed/internal/core"
)

var ErrTest = errors.New("test error")

// Backend is a scriptable core.Backend. Unset hooks succeed with empty results.
type Backend struct {
	FeedFunc          func(ctx context.Context, page, limit int) (*core.Page, error)
	PostFunc          func(ctx context.Context, postID string) (*core.Post, error)
	LikeFunc          func(ctx context.Context, postID string) error
	UnlikeFunc        func(ctx context.Context, postID string) error
	VoteFunc          func(ctx context.Context, postID string, optionIndex int) error
	UpdatePostFunc    func(ctx context.Context, postID string, update core.PostUpdate) (*core.Post, error)
	DeletePostFunc    func(ctx context.Context, postID string) error
	CommentsFunc      func(ctx context.Context, postID string) ([]*core.Comment, error)
	AddCommentFunc    func(ctx context.Context, postID string, draft core.CommentDraft) (*core.Comment, error)
	DeleteCommentFunc func(ctx context.Context, postID, commentID string) error

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times the named method was called.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.calls[method]
}

func (b *Backend) called(method string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.calls == nil {
		b.calls = map[string]int{}
	}
	b.calls[method]++
}

func (b *Backend) Feed(ctx context.Context, page, limit int) (*core.Page, error) {
	b.called("Feed")
	if b.FeedFunc == nil {
		return &core.Page{}, nil
	}
	return b.FeedFunc(ctx, page, limit)
}

func (b *Backend) Post(ctx context.Context, postID string) (*core.Post, error) {
	b.called("Post")
	if b.PostFunc == nil {
		return nil, core.ErrNotFound
	}
	return b.PostFunc(ctx, postID)
}

func (b *Backend) Like(ctx context.Context, postID string) error {
	b.called("Like")
	if b.LikeFunc == nil {
		return nil
	}
	return b.LikeFunc(ctx, postID)
}

func (b *Backend) Unlike(ctx context.Context, postID string) error {
	b.called("Unlike")
	if b.UnlikeFunc == nil {
		return nil
	}
	return b.UnlikeFunc(ctx, postID)
}

func (b *Backend) Vote(ctx context.Context, postID string, optionIndex int) error {
	b.called("Vote")
	if b.VoteFunc == nil {
		return nil
	}
	return b.VoteFunc(ctx, postID, optionIndex)
}

func (b *Backend) UpdatePost(ctx context.Context, postID string, update core.PostUpdate) (*core.Post, error) {
	b.called("UpdatePost")
	if b.UpdatePostFunc == nil {
		post := &core.Post{ID: postID, Hashtags: update.Hashtags, Images: update.Images}
		if update.Content != nil {
			post.Content = *update.Content
		}
		return post, nil
	}
	return b.UpdatePostFunc(ctx, postID, update)
}

func (b *Backend) DeletePost(ctx context.Context, postID string) error {
	b.called("DeletePost")
	if b.DeletePostFunc == nil {
		return nil
	}
	return b.DeletePostFunc(ctx, postID)
}

func (b *Backend) Comments(ctx context.Context, postID string) ([]*core.Comment, error) {
	b.called("Comments")
	if b.CommentsFunc == nil {
		return nil, nil
	}
	return b.CommentsFunc(ctx, postID)
}

func (b *Backend) AddComment(ctx context.Context, postID string, draft core.CommentDraft) (*core.Comment, error) {
	b.called("AddComment")
	if b.AddCommentFunc == nil {
		return &core.Comment{ID: "new", PostID: postID, Content: draft.Content, ParentID: draft.ParentID}, nil
	}
	return b.AddCommentFunc(ctx, postID, draft)
}

func (b *Backend) DeleteComment(ctx context.Context, postID, commentID string) error {
	b.called("DeleteComment")
	if b.DeleteCommentFunc == nil {
		return nil
	}
	return b.DeleteCommentFunc(ctx, postID, commentID)
}

// Posts returns n text posts with ids "<prefix>1".."<prefix>n" authored by authorID.
func Posts(prefix, authorID string, n int) []*core.Post {
	return lo.Times(n, func(i int) *core.Post {
		return &core.Post{
			ID:       fmt.Sprintf("%s%d", prefix, i+1),
			AuthorID: authorID,
			Kind:     core.PostKindText,
			Content:  fmt.Sprintf("post %d", i+1),
		}
	})
}

// Paged serves posts in pages of the requested limit.
func Paged(posts []*core.Post) func(context.Context, int, int) (*core.Page, error) {
	return func(_ context.Context, page, limit int) (*core.Page, error) {
		start := min((page-1)*limit, len(posts))
		end := min(start+limit, len(posts))

		return &core.Page{
			Items: lo.Map(posts[start:end], func(post *core.Post, _ int) *core.Post {
				return post.Clone()
			}),
			HasNextPage: end < len(posts),
		}, nil
	}
}

// Gate blocks a fake call until Release is called, so tests can act while the request is in flight.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

// Wait is called by the fake. It returns once the gate is released or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	g.entered <- struct{}{}

	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entered returns a channel receiving a value every time a call reaches the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

func (g *Gate) Release() {
	g.once.Do(func() {
		close(g.release)
	})
}
