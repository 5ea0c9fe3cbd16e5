package feedapi

import (
	"fmt"
	"net/http"

	"github.com/Jeffail/gabs"

	"prepfeed/internal/core"
)

// classify maps a failed response to the core error taxonomy.
func classify(status int, body []byte) error {
	var kind error

	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		kind = core.ErrValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = core.ErrUnauthorized
	case status == http.StatusNotFound:
		kind = core.ErrNotFound
	case status == http.StatusConflict:
		kind = core.ErrConflict
	default:
		kind = core.ErrTransient
	}

	if msg := errorMessage(body); msg != "" {
		return fmt.Errorf("%w: %d: %s", kind, status, msg)
	}
	return fmt.Errorf("%w: %d", kind, status)
}

func errorMessage(body []byte) string {
	container, err := gabs.ParseJSON(body)
	if err != nil {
		return ""
	}

	for _, key := range []string{"message", "error"} {
		if msg, ok := container.Path(key).Data().(string); ok {
			return msg
		}
	}
	return ""
}
