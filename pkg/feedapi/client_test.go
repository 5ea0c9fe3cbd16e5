package feedapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"resty.dev/v3"

	"prepfeed/internal/core"
	"prepfeed/pkg/feedapi"
)

const (
	feedBody = `{
		"success": true,
		"data": {
			"items": [
				{"_id": "p1", "author": {"_id": "u1", "name": "Asha"}, "type": "text", "content": "hello",
				 "likes": ["u2", "u3"], "commentsCount": 2, "createdAt": "2024-05-01T10:00:00Z"},
				{"_id": "p2", "author": "u2", "type": "poll", "content": "which?",
				 "poll": {"question": "which?", "options": [
					{"text": "a", "votes": 1, "voters": [{"_id": "u1"}]},
					{"text": "b", "votes": 0, "voters": []}
				 ]}}
			],
			"pagination": {"page": 1, "hasNextPage": true}
		}
	}`

	commentsBody = `{"data": [
		{"_id": "c1", "post": "p1", "author": {"_id": "u1"}, "content": "top", "parentComment": null},
		{"_id": "c2", "post": "p1", "author": {"_id": "u2"}, "content": "reply", "parentComment": {"_id": "c1"}}
	]}`
)

func newTestClient(t *testing.T, r chi.Router, middlewares ...resty.RequestMiddleware) *feedapi.Client {
	t.Helper()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := feedapi.NewClient(&feedapi.ClientConfig{
		BaseURL:            srv.URL,
		Token:              "secret",
		Timeout:            feedapi.DefaultConfig.Timeout,
		RequestMiddlewares: middlewares,
	})
	t.Cleanup(func() { client.Close() }) //nolint:errcheck

	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body) //nolint:errcheck
}

func TestClient_Feed(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/posts/feed", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			writeJSON(w, http.StatusUnauthorized, `{"message": "no token"}`)
			return
		}
		if r.URL.Query().Get("page") != "1" || r.URL.Query().Get("limit") != "10" {
			writeJSON(w, http.StatusBadRequest, `{"message": "bad paging"}`)
			return
		}
		writeJSON(w, http.StatusOK, feedBody)
	})

	page, err := newTestClient(t, r).Feed(t.Context(), 1, 10)
	require.NoError(t, err)
	require.True(t, page.HasNextPage)
	require.Len(t, page.Items, 2)

	first := page.Items[0]
	require.Equal(t, "p1", first.ID)
	require.Equal(t, "u1", first.AuthorID)
	require.Equal(t, "Asha", first.Author.Name)
	require.Equal(t, core.PostKindText, first.Kind)
	require.Equal(t, []string{"u2", "u3"}, first.LikedBy)
	require.Equal(t, 2, first.LikeCount)
	require.Equal(t, 2, first.CommentCount)

	second := page.Items[1]
	require.Equal(t, "u2", second.AuthorID)
	require.Equal(t, core.PostKindPoll, second.Kind)
	require.NotNil(t, second.Poll)
	idx, ok := second.Poll.VotedBy("u1")
	require.True(t, ok)
	require.Equal(t, 0, idx)
}

func TestClient_Feed_Shapes(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		body        string
		items       int
		hasNextPage bool
	}{
		"bare": {
			body:        `{"items": [{"id": "p1"}], "pagination": {"hasNextPage": false}}`,
			items:       1,
			hasNextPage: false,
		},
		"double envelope": {
			body:        `{"data": {"data": {"items": [{"_id": "p1"}, {"_id": "p2"}], "pagination": {"hasNextPage": true}}}}`,
			items:       2,
			hasNextPage: true,
		},
		"data list next to pagination": {
			body:        `{"data": [{"_id": "p1"}], "pagination": {"hasNextPage": true}}`,
			items:       1,
			hasNextPage: true,
		},
		"posts key": {
			body:  `{"data": {"posts": []}}`,
			items: 0,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := chi.NewRouter()
			r.Get("/posts/feed", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, tc.body)
			})

			page, err := newTestClient(t, r).Feed(t.Context(), 1, 10)
			require.NoError(t, err)
			require.Len(t, page.Items, tc.items)
			require.Equal(t, tc.hasNextPage, page.HasNextPage)
		})
	}
}

func TestClient_Feed_DecodeErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":             `<html>`,
		"no items":             `{"data": {"pagination": {"hasNextPage": true}}}`,
		"post without id":      `{"items": [{"content": "x"}]}`,
		"unknown type":         `{"items": [{"_id": "p1", "type": "video"}]}`,
		"poll without options": `{"items": [{"_id": "p1", "type": "poll", "poll": {"question": "?", "options": []}}]}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := chi.NewRouter()
			r.Get("/posts/feed", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, body)
			})

			_, err := newTestClient(t, r).Feed(t.Context(), 1, 10)
			require.ErrorIs(t, err, core.ErrDecode)
		})
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	cases := map[int]error{
		http.StatusBadRequest:          core.ErrValidation,
		http.StatusUnprocessableEntity: core.ErrValidation,
		http.StatusUnauthorized:        core.ErrUnauthorized,
		http.StatusForbidden:           core.ErrUnauthorized,
		http.StatusNotFound:            core.ErrNotFound,
		http.StatusConflict:            core.ErrConflict,
		http.StatusInternalServerError: core.ErrTransient,
		http.StatusBadGateway:          core.ErrTransient,
	}

	for status, expected := range cases {
		t.Run(http.StatusText(status), func(t *testing.T) {
			t.Parallel()

			r := chi.NewRouter()
			r.Post("/posts/{id}/like", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, status, `{"message": "nope"}`)
			})

			err := newTestClient(t, r).Like(t.Context(), "p1")
			require.ErrorIs(t, err, expected)
			require.ErrorContains(t, err, "nope")
		})
	}

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		client := feedapi.NewClient(&feedapi.ClientConfig{BaseURL: srv.URL})
		defer client.Close() //nolint:errcheck

		err := client.Like(t.Context(), "p1")
		require.ErrorIs(t, err, core.ErrTransient)
	})
}

func TestClient_Mutations(t *testing.T) {
	t.Parallel()

	var (
		liked, unliked, deleted string
		vote                    map[string]int
		update                  map[string]any
		deletedComment          [2]string
	)

	r := chi.NewRouter()
	r.Post("/posts/{id}/like", func(w http.ResponseWriter, r *http.Request) {
		liked = chi.URLParam(r, "id")
		writeJSON(w, http.StatusOK, `{"success": true}`)
	})
	r.Delete("/posts/{id}/like", func(w http.ResponseWriter, r *http.Request) {
		unliked = chi.URLParam(r, "id")
		w.WriteHeader(http.StatusNoContent)
	})
	r.Post("/posts/{id}/vote", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&vote) //nolint:errcheck
		writeJSON(w, http.StatusOK, `{"success": true}`)
	})
	r.Put("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&update) //nolint:errcheck
		writeJSON(w, http.StatusOK, `{"data": {"_id": "p1", "author": "u1", "content": "edited", "hashtags": ["go"]}}`)
	})
	r.Delete("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = chi.URLParam(r, "id")
		writeJSON(w, http.StatusOK, `{"success": true}`)
	})
	r.Delete("/posts/{id}/comments/{commentId}", func(w http.ResponseWriter, r *http.Request) {
		deletedComment = [2]string{chi.URLParam(r, "id"), chi.URLParam(r, "commentId")}
		writeJSON(w, http.StatusOK, `{}`)
	})

	client := newTestClient(t, r)
	ctx := t.Context()

	require.NoError(t, client.Like(ctx, "p1"))
	require.Equal(t, "p1", liked)

	require.NoError(t, client.Unlike(ctx, "p2"))
	require.Equal(t, "p2", unliked)

	require.NoError(t, client.Vote(ctx, "p3", 1))
	require.Equal(t, map[string]int{"optionIndex": 1}, vote)

	content := "edited"
	post, err := client.UpdatePost(ctx, "p1", core.PostUpdate{Content: &content, Hashtags: []string{"go"}})
	require.NoError(t, err)
	require.Equal(t, "edited", post.Content)
	require.Equal(t, []string{"go"}, post.Hashtags)
	require.Equal(t, "edited", update["content"])
	require.NotContains(t, update, "images")

	require.NoError(t, client.DeletePost(ctx, "p4"))
	require.Equal(t, "p4", deleted)

	require.NoError(t, client.DeleteComment(ctx, "p1", "c9"))
	require.Equal(t, [2]string{"p1", "c9"}, deletedComment)
}

func TestClient_Comments(t *testing.T) {
	t.Parallel()

	var added map[string]string

	r := chi.NewRouter()
	r.Get("/posts/{id}/comments", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, commentsBody)
	})
	r.Post("/posts/{id}/comments", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&added) //nolint:errcheck
		writeJSON(w, http.StatusCreated, `{"data": {"_id": "c3", "author": "u1", "content": "new", "parentComment": "c1"}}`)
	})

	client := newTestClient(t, r)

	comments, err := client.Comments(t.Context(), "p1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Empty(t, comments[0].ParentID)
	require.Equal(t, "c1", comments[1].ParentID)
	require.Equal(t, "p1", comments[1].PostID)

	comment, err := client.AddComment(t.Context(), "p1", core.CommentDraft{Content: "new", ParentID: "c1"})
	require.NoError(t, err)
	require.Equal(t, "c3", comment.ID)
	require.Equal(t, "c1", comment.ParentID)
	require.Equal(t, "p1", comment.PostID)
	require.Equal(t, map[string]string{"content": "new", "parentComment": "c1"}, added)
}

func TestClient_RequestMiddlewares(t *testing.T) {
	t.Parallel()

	var header string

	r := chi.NewRouter()
	r.Get("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Test")
		writeJSON(w, http.StatusOK, `{"_id": "p1"}`)
	})

	client := newTestClient(t, r, func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader("X-Test", "yes")
		if req.RawRequest != nil {
			req.RawRequest.Header.Set("X-Test", "yes")
		}
		return nil
	})

	post, err := client.Post(t.Context(), "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", post.ID)
	require.Equal(t, "yes", header)
}
