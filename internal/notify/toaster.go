package notify

import (
	"context"
	"log/slog"

	"prepfeed/internal/core"
)

// Logger shows toasts by writing them to the log.
type Logger struct {
	Logger *slog.Logger
}

func (l *Logger) Init(_ context.Context) error {
	l.Logger = l.Logger.With("component", "notify.Logger")
	return nil
}

func (l *Logger) Toast(ctx context.Context, toast core.Toast) {
	level := slog.LevelInfo
	if toast.Level == core.ToastError {
		level = slog.LevelError
	}

	attrs := []any{}
	if toast.Err != nil {
		attrs = append(attrs, "error", toast.Err)
	}
	l.Logger.Log(ctx, level, toast.Message, attrs...)
}

type discard struct{}

func (discard) Toast(context.Context, core.Toast) {}

// Discard drops every toast.
var Discard core.Toaster = discard{}

type Func func(ctx context.Context, toast core.Toast)

func (f Func) Toast(ctx context.Context, toast core.Toast) {
	f(ctx, toast)
}
