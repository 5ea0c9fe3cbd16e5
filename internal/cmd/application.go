package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"prepfeed/internal/backend"
	"prepfeed/internal/cmd/flags"
	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/internal/notify"
	"prepfeed/pkg/clicfg"
)

const VERSION = "0.1.0"

var cmd = &cli.Command{
	Name:    "prepfeed",
	Usage:   "Read and interact with the social feed from the terminal",
	Version: VERSION,
	Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
		if err := initLogger(c.String("log-level")); err != nil {
			return ctx, err
		}
		return ctx, nil
	},
	Flags: []cli.Flag{
		flags.APIURL,
		flags.Token,
		flags.UserID,
		flags.PageSize,
		flags.Timeout,
		flags.RateLimit,
		flags.LogLevel,
		flags.Pretty,
	},
	Commands: []*cli.Command{
		feedCmd,
		likeCmd,
		voteCmd,
		editCmd,
		deleteCmd,
		commentsCmd,
		commentCmd,
		uncommentCmd,
		watchCmd,
	},
}

func Run() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command, services ...pal.ServiceDef) error {
	cfg := config.Config{}
	if err := clicfg.ParseFlags(c, &cfg); err != nil {
		return err
	}
	services = append(services,
		pal.Provide(&cfg),
		pal.Provide[core.Backend](&backend.Service{}),
		pal.Provide[core.Toaster](&notify.Logger{}),
	)

	return pal.New(services...).
		InjectSlog().
		InitTimeout(2*time.Second).
		HealthCheckTimeout(1*time.Second).
		ShutdownTimeout(10*time.Second).
		Run(ctx, syscall.SIGINT, syscall.SIGTERM)
}
