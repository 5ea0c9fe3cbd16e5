package feed_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"prepfeed/internal/core"
	"prepfeed/internal/feed"
	"prepfeed/internal/feedtest"
)

func TestSession(t *testing.T) {
	t.Parallel()

	posts := feedtest.Posts("p", "u1", 12)
	backend := &feedtest.Backend{
		FeedFunc: feedtest.Paged(posts),
		CommentsFunc: func(_ context.Context, postID string) ([]*core.Comment, error) {
			return []*core.Comment{{ID: "c1", PostID: postID, AuthorID: "u2"}}, nil
		},
	}

	session := feed.NewSession(backend, "u1")
	t.Cleanup(session.Close)

	_, err := session.LoadFirstPage().Wait()
	require.NoError(t, err)
	_, err = session.LoadNextPage().Wait()
	require.NoError(t, err)

	state := session.State()
	require.Len(t, state.Items, 12)
	require.False(t, state.HasMore)

	_, err = session.ToggleLike("p2").Wait()
	require.NoError(t, err)

	post, _ := session.Store().Post("p2")
	require.True(t, post.LikedByUser("u1"))

	content := "edited"
	updated, err := session.UpdatePost("p3", core.PostUpdate{Content: &content}).Wait()
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Content)

	panel, opened := session.OpenComments("p4")
	_, err = opened.Wait()
	require.NoError(t, err)
	require.Equal(t, 1, panel.State().Total)

	_, err = session.DeleteComment(panel, "c1").Wait()
	require.NoError(t, err)

	post, _ = session.Store().Post("p4")
	require.Equal(t, 0, post.CommentCount)

	panel.SetDraft("hello")
	_, err = session.SubmitComment(panel, "").Wait()
	require.NoError(t, err)

	post, _ = session.Store().Post("p4")
	require.Equal(t, 1, post.CommentCount)

	deleted, err := session.DeletePost("p1", core.ConfirmFunc(func(context.Context, string) (bool, error) {
		return true, nil
	})).Wait()
	require.NoError(t, err)
	require.True(t, deleted)

	session.Wait()
	require.Len(t, session.State().Items, 11)
}

func TestSession_ConcurrentActions(t *testing.T) {
	t.Parallel()

	backend := &feedtest.Backend{FeedFunc: feedtest.Paged(feedtest.Posts("p", "u1", 35))}

	session := feed.NewSession(backend, "u2")
	t.Cleanup(session.Close)

	_, err := session.LoadFirstPage().Wait()
	require.NoError(t, err)

	for range 20 {
		session.LoadNextPage()
		session.Refresh()
		session.ToggleLike("p1")
	}
	session.Wait()

	state := session.State()
	require.NotEmpty(t, state.Items)
	require.Len(t, lo.UniqBy(state.Items, func(post *core.Post) string {
		return post.ID
	}), len(state.Items))
	require.LessOrEqual(t, len(state.Items), 35)
	require.False(t, state.Loading)
	require.False(t, state.Refreshing)
}

func TestSession_Close(t *testing.T) {
	t.Parallel()

	gate := feedtest.NewGate()
	backend := &feedtest.Backend{
		FeedFunc: feedtest.Paged(feedtest.Posts("p", "u1", 3)),
		LikeFunc: func(ctx context.Context, _ string) error {
			if err := gate.Wait(ctx); err != nil {
				return err
			}
			return core.ErrTransient
		},
	}
	toasts := &feedtest.Toasts{}

	session := feed.NewSession(backend, "u2", feed.WithToaster(toasts))

	_, err := session.LoadFirstPage().Wait()
	require.NoError(t, err)

	panel, opened := session.OpenComments("p1")
	_, err = opened.Wait()
	require.NoError(t, err)

	like := session.ToggleLike("p1")
	<-gate.Entered()

	session.Close()
	gate.Release()

	_, err = like.Wait()
	require.NoError(t, err)
	require.Equal(t, 0, toasts.Len())

	_, err = session.Refresh().Wait()
	require.ErrorIs(t, err, feed.ErrClosed)

	panel.SetDraft("late")
	require.Error(t, panel.Submit(t.Context(), ""))
}
