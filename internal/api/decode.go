package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// decodeObject copies a JSON object response into dest.
func decodeObject(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return errors.New("empty response body")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeList copies a JSON array response into dest. Anything other than an
// array is ErrUnexpectedShape.
func decodeList(raw json.RawMessage, dest any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return ErrUnexpectedShape
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	return nil
}
