package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"

	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/internal/feed"
)

var (
	ErrMissingArgument = errors.New("missing argument")
	ErrNoUser          = errors.New("the command needs --user-id")
)

// args returns the positional arguments of c, one per name.
func args(c *cli.Command, names ...string) ([]string, error) {
	if c.Args().Len() < len(names) {
		return nil, fmt.Errorf("%w: expected %s", ErrMissingArgument, strings.Join(names, " "))
	}
	return c.Args().Slice()[:len(names)], nil
}

func openSession(cfg *config.Config, logger *slog.Logger, backend core.Backend, toaster core.Toaster) (*feed.Session, error) {
	if cfg.UserID == "" {
		return nil, ErrNoUser
	}

	return feed.NewSession(backend, cfg.UserID,
		feed.WithLogger(logger),
		feed.WithToaster(toaster),
		feed.WithPageSize(cfg.PageSize),
	), nil
}

func output(w io.Writer, pretty bool, v any) error {
	if pretty {
		_, err := pp.Fprintln(w, v)
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// promptConfirmer asks on out and reads a yes/no answer from in.
func promptConfirmer(in io.Reader, out io.Writer) core.Confirmer {
	return core.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", prompt) //nolint:errcheck

		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	})
}

var alwaysConfirm = core.ConfirmFunc(func(context.Context, string) (bool, error) {
	return true, nil
})
