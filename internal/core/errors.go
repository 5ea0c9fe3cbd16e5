package core

import "errors"

var (
	ErrTransient    = errors.New("temporary failure")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDecode       = errors.New("cannot decode response")
)

// IsReconcilable reports whether local state must be re-fetched after the error.
func IsReconcilable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound)
}
