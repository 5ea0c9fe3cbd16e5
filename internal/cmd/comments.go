package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"prepfeed/internal/comments"
	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/internal/feed"
)

var commentsCmd = &cli.Command{
	Name:      "comments",
	Usage:     "Print the comments of a post",
	ArgsUsage: "POST_ID",
	Action: func(ctx context.Context, c *cli.Command) error {
		a, err := args(c, "POST_ID")
		if err != nil {
			return err
		}
		return run(ctx, c, pal.Provide(&commentsRunner{postID: a[0], out: os.Stdout}))
	},
}

var commentCmd = &cli.Command{
	Name:      "comment",
	Usage:     "Comment on a post",
	ArgsUsage: "POST_ID TEXT",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "reply-to", Usage: "The id of the comment to reply to"},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		a, err := args(c, "POST_ID", "TEXT")
		if err != nil {
			return err
		}

		text, parentID := a[1], c.String("reply-to")
		return run(ctx, c, pal.Provide(&commentsRunner{
			postID: a[0],
			out:    os.Stdout,
			action: func(session *feed.Session, panel *comments.Panel) error {
				panel.SetDraft(text)
				_, err := session.SubmitComment(panel, parentID).Wait()
				return err
			},
		}))
	},
}

var uncommentCmd = &cli.Command{
	Name:      "uncomment",
	Usage:     "Delete a comment",
	ArgsUsage: "POST_ID COMMENT_ID",
	Action: func(ctx context.Context, c *cli.Command) error {
		a, err := args(c, "POST_ID", "COMMENT_ID")
		if err != nil {
			return err
		}

		commentID := a[1]
		return run(ctx, c, pal.Provide(&commentsRunner{
			postID:   a[0],
			out:      os.Stdout,
			needPost: true,
			action: func(session *feed.Session, panel *comments.Panel) error {
				_, err := session.DeleteComment(panel, commentID).Wait()
				return err
			},
		}))
	},
}

type commentsRunner struct {
	Logger  *slog.Logger
	Config  *config.Config
	Backend core.Backend
	Toaster core.Toaster

	postID string
	// needPost loads the post first, so that its author may delete any comment under it.
	needPost bool
	action   func(session *feed.Session, panel *comments.Panel) error
	out      io.Writer
}

func (r *commentsRunner) Run(_ context.Context) error {
	session, err := openSession(r.Config, r.Logger, r.Backend, r.Toaster)
	if err != nil {
		return err
	}
	defer session.Close()

	if r.needPost {
		if _, err := session.LoadPost(r.postID).Wait(); err != nil {
			return err
		}
	}

	panel, opened := session.OpenComments(r.postID)
	if _, err := opened.Wait(); err != nil {
		return err
	}

	if r.action != nil {
		if err := r.action(session, panel); err != nil {
			return err
		}
	}

	return output(r.out, r.Config.Pretty, panel.State().Comments)
}
