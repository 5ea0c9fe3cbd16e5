package flags

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/urfave/cli/v3"

	"prepfeed/internal/feed"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

var validLogLevels = []string{"debug", "info", "warn", "error"}

var APIURL = &cli.StringFlag{
	Name:     "api-url",
	Aliases:  []string{"u"},
	Usage:    "The base URL of the backend API",
	Sources:  cli.EnvVars("PREPFEED_API_URL"),
	Required: true,
}

var Token = &cli.StringFlag{
	Name:    "token",
	Aliases: []string{"t"},
	Usage:   "The bearer token of the signed-in user",
	Sources: cli.EnvVars("PREPFEED_TOKEN"),
}

var UserID = &cli.StringFlag{
	Name:    "user-id",
	Usage:   "The id of the signed-in user",
	Sources: cli.EnvVars("PREPFEED_USER_ID"),
}

var PageSize = &cli.IntFlag{
	Name:    "page-size",
	Usage:   "Posts requested per feed page",
	Value:   feed.DefaultPageSize,
	Sources: cli.EnvVars("PREPFEED_PAGE_SIZE"),
}

var Timeout = &cli.DurationFlag{
	Name:    "timeout",
	Usage:   "Timeout of a single backend request",
	Value:   10 * time.Second,
	Sources: cli.EnvVars("PREPFEED_TIMEOUT"),
}

var RateLimit = &cli.FloatFlag{
	Name:    "rate-limit",
	Usage:   "Maximum backend requests per second, 0 disables the limit",
	Value:   5,
	Sources: cli.EnvVars("PREPFEED_RATE_LIMIT"),
}

// TODO: extract custom EnumFlag
var LogLevel = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Value:   "info",
	Validator: func(value string) error {
		if !slices.Contains(validLogLevels, value) {
			return fmt.Errorf("%w: %s, allowed values are: %s", ErrInvalidLogLevel, value, validLogLevels)
		}
		return nil
	},
	Sources: cli.EnvVars("LOG_LEVEL"),
}

var Pretty = &cli.BoolFlag{
	Name:    "pretty",
	Aliases: []string{"p"},
	Usage:   "Pretty-print results instead of printing JSON",
	Sources: cli.EnvVars("PREPFEED_PRETTY"),
}

var Yes = &cli.BoolFlag{
	Name:    "yes",
	Aliases: []string{"y"},
	Usage:   "Do not ask for confirmation before deleting",
}

var MetricsAddr = &cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "The address the metrics server listens on",
	Value:   ":8080",
	Sources: cli.EnvVars("PREPFEED_METRICS_ADDR"),
}

var RefreshInterval = &cli.DurationFlag{
	Name:    "refresh-interval",
	Usage:   "How often the watched feed is refreshed",
	Value:   30 * time.Second,
	Sources: cli.EnvVars("PREPFEED_REFRESH_INTERVAL"),
}
