package core

import (
	"slices"
	"time"

	"github.com/samber/lo"
)

type PostKind string

const (
	PostKindText  PostKind = "text"
	PostKindImage PostKind = "image"
	PostKindPoll  PostKind = "poll"
)

func (k PostKind) Valid() bool {
	switch k {
	case PostKindText, PostKindImage, PostKindPoll:
		return true
	}
	return false
}

// Author is the embedded, non-authoritative snapshot of a user attached to posts and comments.
type Author struct {
	ID     string
	Name   string
	Avatar string
}

type PollOption struct {
	Text   string
	Votes  int
	Voters []string
}

type Poll struct {
	Question string
	Options  []PollOption
}

// VotedBy returns the index of the option the user voted for.
func (p *Poll) VotedBy(userID string) (int, bool) {
	for i, option := range p.Options {
		if lo.Contains(option.Voters, userID) {
			return i, true
		}
	}
	return -1, false
}

// Post represents a single feed entry.
type Post struct {
	ID       string
	AuthorID string
	Author   Author

	Kind     PostKind
	Content  string
	Hashtags []string
	Images   []string
	Poll     *Poll

	LikeCount    int
	LikedBy      []string
	CommentCount int

	CreatedAt time.Time
}

func (p *Post) LikedByUser(userID string) bool {
	return lo.Contains(p.LikedBy, userID)
}

// Clone returns a deep copy, so that snapshots handed to subscribers are never mutated.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}

	c := *p
	c.Hashtags = slices.Clone(p.Hashtags)
	c.Images = slices.Clone(p.Images)
	c.LikedBy = slices.Clone(p.LikedBy)

	if p.Poll != nil {
		poll := Poll{Question: p.Poll.Question, Options: make([]PollOption, len(p.Poll.Options))}
		for i, option := range p.Poll.Options {
			poll.Options[i] = PollOption{
				Text:   option.Text,
				Votes:  option.Votes,
				Voters: slices.Clone(option.Voters),
			}
		}
		c.Poll = &poll
	}

	return &c
}

// Page is a decoded feed response.
type Page struct {
	Items       []*Post
	HasNextPage bool
}

// PostUpdate carries the editable fields of a post. Nil fields are left untouched by the server.
type PostUpdate struct {
	Content  *string
	Hashtags []string
	Images   []string
}

// Comment is a single comment. Replies is only populated on top-level comments of a built tree.
type Comment struct {
	ID       string
	PostID   string
	AuthorID string
	Author   Author
	Content  string
	ParentID string

	Replies []*Comment

	CreatedAt time.Time
}

func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}

type CommentDraft struct {
	Content  string
	ParentID string
}
