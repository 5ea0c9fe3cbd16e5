package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"prepfeed/internal/cmd/flags"
	"prepfeed/internal/metrics"
	"prepfeed/internal/watch"
)

var watchCmd = &cli.Command{
	Name:  "watch",
	Usage: "Keep refreshing the feed, log new posts and serve metrics",
	Flags: []cli.Flag{
		flags.MetricsAddr,
		flags.RefreshInterval,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c,
			pal.Provide(&watch.Watcher{}),
			pal.Provide(&metrics.HTTPServer{}),
		)
	},
}
