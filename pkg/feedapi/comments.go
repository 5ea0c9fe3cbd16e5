package feedapi

import (
	"context"
	"net/http"

	"prepfeed/internal/core"
)

const (
	commentsPath = "/posts/{id}/comments"
	commentPath  = "/posts/{id}/comments/{commentId}"
)

// Comments returns the flat comment list of a post, replies included.
func (c *Client) Comments(ctx context.Context, postID string) ([]*core.Comment, error) {
	body, err := c.get(c.r(ctx).SetPathParam("id", postID), commentsPath)
	if err != nil {
		return nil, err
	}

	container, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	if list := field(container, "comments"); list != nil {
		container = list
	}

	var comments []*comment
	if err := decodeContainer(container, &comments); err != nil {
		return nil, err
	}

	result := make([]*core.Comment, 0, len(comments))
	for _, cm := range comments {
		if cm == nil {
			continue
		}
		converted, err := cm.toCore(postID)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
	return result, nil
}

func (c *Client) AddComment(ctx context.Context, postID string, draft core.CommentDraft) (*core.Comment, error) {
	body, err := c.do(
		c.r(ctx).
			SetPathParam("id", postID).
			SetBody(commentBody{Content: draft.Content, ParentComment: draft.ParentID}),
		http.MethodPost, commentsPath,
	)
	if err != nil {
		return nil, err
	}

	var cm comment
	if err := decode(body, &cm); err != nil {
		return nil, err
	}
	return cm.toCore(postID)
}

func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	_, err := c.do(
		c.r(ctx).SetPathParams(map[string]string{
			"id":        postID,
			"commentId": commentID,
		}),
		http.MethodDelete, commentPath,
	)
	return err
}
