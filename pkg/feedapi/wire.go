package feedapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"prepfeed/internal/core"
)

// ref is a reference to another document, sent either as a bare id or as a populated object.
type ref struct {
	ID     string
	Name   string
	Avatar string
}

func (r *ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}

	var obj struct {
		MongoID        string `json:"_id"`
		ID             string `json:"id"`
		Name           string `json:"name"`
		Username       string `json:"username"`
		Avatar         string `json:"avatar"`
		ProfilePicture string `json:"profilePicture"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	r.ID = lo.Ternary(obj.MongoID != "", obj.MongoID, obj.ID)
	r.Name = lo.Ternary(obj.Name != "", obj.Name, obj.Username)
	r.Avatar = lo.Ternary(obj.Avatar != "", obj.Avatar, obj.ProfilePicture)
	return nil
}

func (r ref) author() core.Author {
	return core.Author{ID: r.ID, Name: r.Name, Avatar: r.Avatar}
}

type pollOption struct {
	Text   string `json:"text"`
	Votes  int    `json:"votes"`
	Voters []ref  `json:"voters"`
}

type poll struct {
	Question string       `json:"question"`
	Options  []pollOption `json:"options"`
}

type post struct {
	MongoID       string    `json:"_id"`
	ID            string    `json:"id"`
	Author        ref       `json:"author"`
	Type          string    `json:"type"`
	Content       string    `json:"content"`
	Hashtags      []string  `json:"hashtags"`
	Images        []string  `json:"images"`
	Poll          *poll     `json:"poll"`
	Likes         []ref     `json:"likes"`
	LikesCount    *int      `json:"likesCount"`
	CommentsCount int       `json:"commentsCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type pagination struct {
	HasNextPage bool `json:"hasNextPage"`
}

type comment struct {
	MongoID       string    `json:"_id"`
	ID            string    `json:"id"`
	Post          ref       `json:"post"`
	Author        ref       `json:"author"`
	Content       string    `json:"content"`
	ParentComment ref       `json:"parentComment"`
	CreatedAt     time.Time `json:"createdAt"`
}

type postUpdateBody struct {
	Content  *string  `json:"content,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
	Images   []string `json:"images,omitempty"`
}

type commentBody struct {
	Content       string `json:"content"`
	ParentComment string `json:"parentComment,omitempty"`
}

type voteBody struct {
	OptionIndex int `json:"optionIndex"`
}

func refIDs(refs []ref) []string {
	return lo.Uniq(lo.FilterMap(refs, func(r ref, _ int) (string, bool) {
		return r.ID, r.ID != ""
	}))
}

func (p *post) toCore() (*core.Post, error) {
	id := lo.Ternary(p.MongoID != "", p.MongoID, p.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: post without id", core.ErrDecode)
	}

	kind := core.PostKind(strings.ToLower(p.Type))
	if kind == "" {
		switch {
		case p.Poll != nil:
			kind = core.PostKindPoll
		case len(p.Images) > 0:
			kind = core.PostKindImage
		default:
			kind = core.PostKindText
		}
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: post %s has unknown type %q", core.ErrDecode, id, p.Type)
	}

	result := &core.Post{
		ID:           id,
		AuthorID:     p.Author.ID,
		Author:       p.Author.author(),
		Kind:         kind,
		Content:      p.Content,
		Hashtags:     p.Hashtags,
		Images:       p.Images,
		LikedBy:      refIDs(p.Likes),
		CommentCount: p.CommentsCount,
		CreatedAt:    p.CreatedAt,
	}
	result.LikeCount = len(result.LikedBy)
	if p.LikesCount != nil && len(p.Likes) == 0 {
		result.LikeCount = *p.LikesCount
	}

	if p.Poll != nil {
		result.Poll = &core.Poll{
			Question: p.Poll.Question,
			Options: lo.Map(p.Poll.Options, func(o pollOption, _ int) core.PollOption {
				voters := refIDs(o.Voters)
				return core.PollOption{
					Text:   o.Text,
					Votes:  max(o.Votes, len(voters)),
					Voters: voters,
				}
			}),
		}
	}

	if kind == core.PostKindPoll && (result.Poll == nil || len(result.Poll.Options) < 2) {
		return nil, fmt.Errorf("%w: poll post %s needs at least two options", core.ErrDecode, id)
	}

	return result, nil
}

func (c *comment) toCore(postID string) (*core.Comment, error) {
	id := lo.Ternary(c.MongoID != "", c.MongoID, c.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: comment without id", core.ErrDecode)
	}

	return &core.Comment{
		ID:        id,
		PostID:    lo.Ternary(c.Post.ID != "", c.Post.ID, postID),
		AuthorID:  c.Author.ID,
		Author:    c.Author.author(),
		Content:   c.Content,
		ParentID:  c.ParentComment.ID,
		CreatedAt: c.CreatedAt,
	}, nil
}

func postsToCore(posts []*post) ([]*core.Post, error) {
	result := make([]*core.Post, 0, len(posts))
	for _, p := range posts {
		if p == nil {
			continue
		}
		converted, err := p.toCore()
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
	return result, nil
}
