package feedtest

import (
	"context"
	"slices"
	"sync"

	"prepfeed/internal/core"
)

// Toasts records every toast it is shown.
type Toasts struct {
	mu     sync.Mutex
	toasts []core.Toast
}

func (t *Toasts) Toast(_ context.Context, toast core.Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.toasts = append(t.toasts, toast)
}

func (t *Toasts) All() []core.Toast {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.toasts)
}

func (t *Toasts) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.toasts)
}
