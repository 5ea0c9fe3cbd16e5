package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"prepfeed/internal/cmd/flags"
	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/internal/feed"
)

var feedCmd = &cli.Command{
	Name:  "feed",
	Usage: "Print the feed",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "pages",
			Usage: "How many pages to load",
			Value: 1,
		},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c, pal.Provide(&feedRunner{pages: int(c.Int("pages")), out: os.Stdout}))
	},
}

type feedRunner struct {
	Logger  *slog.Logger
	Config  *config.Config
	Backend core.Backend
	Toaster core.Toaster

	pages int
	out   io.Writer
}

func (r *feedRunner) Run(_ context.Context) error {
	session, err := openSession(r.Config, r.Logger, r.Backend, r.Toaster)
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.LoadFirstPage().Wait(); err != nil {
		return err
	}
	for page := 1; page < r.pages && session.State().HasMore; page++ {
		if _, err := session.LoadNextPage().Wait(); err != nil {
			return err
		}
	}

	state := session.State()
	r.Logger.Debug("feed printed", "items", len(state.Items), "page", state.Page, "has_more", state.HasMore)

	return output(r.out, r.Config.Pretty, state.Items)
}

var likeCmd = &cli.Command{
	Name:      "like",
	Usage:     "Like a post, or unlike it when it is already liked",
	ArgsUsage: "POST_ID",
	Action: func(ctx context.Context, c *cli.Command) error {
		a, err := args(c, "POST_ID")
		if err != nil {
			return err
		}
		return run(ctx, c, pal.Provide(&postRunner{postID: a[0], action: toggleLike, out: os.Stdout}))
	},
}

var voteCmd = &cli.Command{
	Name:      "vote",
	Usage:     "Vote on a poll",
	ArgsUsage: "POST_ID OPTION",
	Action: func(ctx context.Context, c *cli.Command) error {
		a, err := args(c, "POST_ID", "OPTION")
		if err != nil {
			return err
		}
		option, err := strconv.Atoi(a[1])
		if err != nil {
			return fmt.Errorf("option must be the index of a poll option: %w", err)
		}
		return run(ctx, c, pal.Provide(&postRunner{postID: a[0], action: vote(option), out: os.Stdout}))
	},
}

var editCmd = &cli.Command{
	Name:      "edit",
	Usage:     "Edit a post of the signed-in user",
	ArgsUsage: "POST_ID",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "content", Usage: "The new text of the post"},
		&cli.StringSliceFlag{Name: "hashtag", Usage: "Replace the hashtags, can be repeated"},
		&cli.StringSliceFlag{Name: "image", Usage: "Replace the image URLs, can be repeated"},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		a, err := args(c, "POST_ID")
		if err != nil {
			return err
		}

		update := core.PostUpdate{}
		if c.IsSet("content") {
			content := c.String("content")
			update.Content = &content
		}
		if c.IsSet("hashtag") {
			update.Hashtags = c.StringSlice("hashtag")
		}
		if c.IsSet("image") {
			update.Images = c.StringSlice("image")
		}

		return run(ctx, c, pal.Provide(&postRunner{postID: a[0], action: edit(update), out: os.Stdout}))
	},
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "Delete a post of the signed-in user",
	ArgsUsage: "POST_ID",
	Flags:     []cli.Flag{flags.Yes},
	Action: func(ctx context.Context, c *cli.Command) error {
		a, err := args(c, "POST_ID")
		if err != nil {
			return err
		}

		confirmer := promptConfirmer(os.Stdin, os.Stderr)
		if c.Bool("yes") {
			confirmer = alwaysConfirm
		}

		return run(ctx, c, pal.Provide(&postRunner{postID: a[0], action: remove(confirmer), out: os.Stdout}))
	},
}

// postAction acts on a post loaded into session and returns what is printed.
type postAction func(session *feed.Session, postID string) (any, error)

type postRunner struct {
	Logger  *slog.Logger
	Config  *config.Config
	Backend core.Backend
	Toaster core.Toaster

	postID string
	action postAction
	out    io.Writer
}

func (r *postRunner) Run(_ context.Context) error {
	session, err := openSession(r.Config, r.Logger, r.Backend, r.Toaster)
	if err != nil {
		return err
	}
	defer session.Close()

	if _, err := session.LoadPost(r.postID).Wait(); err != nil {
		return err
	}

	result, err := r.action(session, r.postID)
	if err != nil {
		return err
	}

	return output(r.out, r.Config.Pretty, result)
}

func toggleLike(session *feed.Session, postID string) (any, error) {
	if _, err := session.ToggleLike(postID).Wait(); err != nil {
		return nil, err
	}
	post, _ := session.Store().Post(postID)
	return post, nil
}

func vote(option int) postAction {
	return func(session *feed.Session, postID string) (any, error) {
		if _, err := session.VoteOnPoll(postID, option).Wait(); err != nil {
			return nil, err
		}
		post, _ := session.Store().Post(postID)
		return post, nil
	}
}

func edit(update core.PostUpdate) postAction {
	return func(session *feed.Session, postID string) (any, error) {
		post, err := session.UpdatePost(postID, update).Wait()
		if err != nil {
			return nil, err
		}
		return post, nil
	}
}

func remove(confirmer core.Confirmer) postAction {
	return func(session *feed.Session, postID string) (any, error) {
		deleted, err := session.DeletePost(postID, confirmer).Wait()
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": postID, "deleted": deleted}, nil
	}
}
