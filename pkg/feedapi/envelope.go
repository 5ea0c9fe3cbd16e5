package feedapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Jeffail/gabs"

	"prepfeed/internal/core"
)

// The backend wraps payloads in {"data": ...}, sometimes twice.
const maxEnvelopeDepth = 2

func unwrap(body []byte) (*gabs.Container, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", core.ErrDecode)
	}

	container, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDecode, err)
	}

	for range maxEnvelopeDepth {
		data := field(container, "data")
		if data == nil {
			break
		}
		container = data
	}

	return container, nil
}

// field returns the non-null value under key when container holds an object, nil otherwise.
func field(container *gabs.Container, key string) *gabs.Container {
	obj, ok := container.Data().(map[string]interface{})
	if !ok {
		return nil
	}
	if value, ok := obj[key]; !ok || value == nil {
		return nil
	}
	return container.Path(key)
}

// decode unwraps the envelope and decodes the payload into v.
func decode(body []byte, v any) error {
	container, err := unwrap(body)
	if err != nil {
		return err
	}
	return decodeContainer(container, v)
}

func decodeContainer(container *gabs.Container, v any) error {
	if err := json.Unmarshal(container.Bytes(), v); err != nil {
		return fmt.Errorf("%w: %w", core.ErrDecode, err)
	}
	return nil
}
