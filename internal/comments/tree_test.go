package comments_test

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"prepfeed/internal/comments"
	"prepfeed/internal/core"
)

func comment(id, parentID string) *core.Comment {
	return &core.Comment{ID: id, PostID: "p1", AuthorID: "u1", Content: id, ParentID: parentID}
}

func commentIDs(list []*core.Comment) []string {
	return lo.Map(list, func(c *core.Comment, _ int) string {
		return c.ID
	})
}

func TestTree_Rebuild(t *testing.T) {
	t.Parallel()

	t.Run("nests replies and drops orphans", func(t *testing.T) {
		t.Parallel()

		tree := comments.NewTree([]*core.Comment{
			comment("A", ""),
			comment("B", "A"),
			comment("C", ""),
			comment("D", "nonexistent"),
		})

		roots := tree.Comments()
		require.Equal(t, []string{"A", "C"}, commentIDs(roots))
		require.Equal(t, []string{"B"}, commentIDs(roots[0].Replies))
		require.Empty(t, roots[1].Replies)

		_, found := tree.Find("D")
		require.False(t, found)
		require.Equal(t, 3, tree.Len())
	})

	t.Run("keeps the received order", func(t *testing.T) {
		t.Parallel()

		tree := comments.NewTree([]*core.Comment{
			comment("r2", "A"),
			comment("B", ""),
			comment("A", ""),
			comment("r1", "A"),
			comment("r3", "B"),
		})

		roots := tree.Comments()
		require.Equal(t, []string{"B", "A"}, commentIDs(roots))
		require.Equal(t, []string{"r2", "r1"}, commentIDs(roots[1].Replies))
		require.Equal(t, []string{"r3"}, commentIDs(roots[0].Replies))
	})

	t.Run("drops replies to replies", func(t *testing.T) {
		t.Parallel()

		tree := comments.NewTree([]*core.Comment{
			comment("A", ""),
			comment("B", "A"),
			comment("C", "B"),
		})

		require.Equal(t, 2, tree.Len())
		_, found := tree.Find("C")
		require.False(t, found)
	})

	t.Run("does not modify its input", func(t *testing.T) {
		t.Parallel()

		flat := []*core.Comment{comment("A", ""), comment("B", "A")}
		tree := comments.NewTree(flat)

		require.Nil(t, flat[0].Replies)

		tree.Comments()[0].Replies = nil
		require.Len(t, tree.Comments()[0].Replies, 1)
	})

	t.Run("replaces the previous tree", func(t *testing.T) {
		t.Parallel()

		tree := comments.NewTree([]*core.Comment{comment("A", ""), comment("B", "A")})
		tree.Rebuild([]*core.Comment{comment("C", ""), comment("C", "")})

		require.Equal(t, []string{"C"}, commentIDs(tree.Comments()))
	})
}

func TestTree_RemoveLocally(t *testing.T) {
	t.Parallel()

	flat := func() []*core.Comment {
		return []*core.Comment{
			comment("A", ""),
			comment("B", "A"),
			comment("B2", "A"),
			comment("C", ""),
		}
	}

	t.Run("top-level comment with replies", func(t *testing.T) {
		t.Parallel()

		tree := comments.NewTree(flat())

		require.Equal(t, 3, tree.RemoveLocally("A"))
		require.Equal(t, []string{"C"}, commentIDs(tree.Comments()))
		require.Equal(t, 1, tree.Len())
	})

	t.Run("single reply", func(t *testing.T) {
		t.Parallel()

		tree := comments.NewTree(flat())

		require.Equal(t, 1, tree.RemoveLocally("B"))

		roots := tree.Comments()
		require.Equal(t, []string{"A", "C"}, commentIDs(roots))
		require.Equal(t, []string{"B2"}, commentIDs(roots[0].Replies))
	})

	t.Run("unknown comment", func(t *testing.T) {
		t.Parallel()

		tree := comments.NewTree(flat())

		require.Equal(t, 0, tree.RemoveLocally("nope"))
		require.Equal(t, 4, tree.Len())
	})
}
