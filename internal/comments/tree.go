package comments

import (
	"slices"

	"github.com/samber/lo"

	"prepfeed/internal/core"
)

// Tree is a two-level comment structure: top-level comments each own a flat, ordered list of replies.
type Tree struct {
	roots []*core.Comment
}

func NewTree(flat []*core.Comment) *Tree {
	t := &Tree{}
	t.Rebuild(flat)
	return t
}

// Rebuild replaces the tree with one built from a flat list. Replies whose parent is not a top-level
// comment of the list are dropped. Order is preserved as received.
func (t *Tree) Rebuild(flat []*core.Comment) {
	flat = lo.UniqBy(lo.Filter(flat, func(c *core.Comment, _ int) bool {
		return c != nil
	}), func(c *core.Comment) string {
		return c.ID
	})

	roots := lo.FilterMap(flat, func(c *core.Comment, _ int) (*core.Comment, bool) {
		if c.IsReply() {
			return nil, false
		}
		root := *c
		root.Replies = nil
		return &root, true
	})
	byID := lo.KeyBy(roots, func(c *core.Comment) string {
		return c.ID
	})

	for _, c := range flat {
		if !c.IsReply() {
			continue
		}
		parent, ok := byID[c.ParentID]
		if !ok {
			continue
		}
		reply := *c
		reply.Replies = nil
		parent.Replies = append(parent.Replies, &reply)
	}

	t.roots = roots
}

// RemoveLocally removes a top-level comment together with its replies, or a single reply. It returns
// how many comments were removed.
func (t *Tree) RemoveLocally(commentID string) int {
	for i, root := range t.roots {
		if root.ID == commentID {
			t.roots = slices.Delete(slices.Clone(t.roots), i, i+1)
			return 1 + len(root.Replies)
		}

		for j, reply := range root.Replies {
			if reply.ID == commentID {
				root.Replies = slices.Delete(slices.Clone(root.Replies), j, j+1)
				return 1
			}
		}
	}
	return 0
}

// Find returns the comment or reply with the given id.
func (t *Tree) Find(commentID string) (*core.Comment, bool) {
	for _, root := range t.roots {
		if root.ID == commentID {
			return root, true
		}
		if reply, ok := lo.Find(root.Replies, func(c *core.Comment) bool {
			return c.ID == commentID
		}); ok {
			return reply, true
		}
	}
	return nil, false
}

// Len counts top-level comments and replies.
func (t *Tree) Len() int {
	return lo.SumBy(t.roots, func(c *core.Comment) int {
		return 1 + len(c.Replies)
	})
}

// Comments returns a copy of the top-level comments with their replies.
func (t *Tree) Comments() []*core.Comment {
	return lo.Map(t.roots, func(root *core.Comment, _ int) *core.Comment {
		c := *root
		c.Replies = lo.Map(root.Replies, func(reply *core.Comment, _ int) *core.Comment {
			r := *reply
			return &r
		})
		return &c
	})
}
