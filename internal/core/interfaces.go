package core

import (
	"context"
)

// Backend is the REST collaborator the feed and comment state is synchronized with.
type Backend interface {
	Feed(ctx context.Context, page, limit int) (*Page, error)
	Post(ctx context.Context, postID string) (*Post, error)

	Like(ctx context.Context, postID string) error
	Unlike(ctx context.Context, postID string) error
	Vote(ctx context.Context, postID string, optionIndex int) error

	UpdatePost(ctx context.Context, postID string, update PostUpdate) (*Post, error)
	DeletePost(ctx context.Context, postID string) error

	Comments(ctx context.Context, postID string) ([]*Comment, error)
	AddComment(ctx context.Context, postID string, draft CommentDraft) (*Comment, error)
	DeleteComment(ctx context.Context, postID, commentID string) error
}

type ToastLevel string

const (
	ToastInfo  ToastLevel = "info"
	ToastError ToastLevel = "error"
)

type Toast struct {
	Level   ToastLevel
	Message string
	Err     error
}

// Toaster shows dismissible, user-visible notices.
type Toaster interface {
	Toast(ctx context.Context, toast Toast)
}

// Confirmer asks the user to confirm a destructive action. It blocks until the user answers.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}
