package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxJSONBytes bounds the documents ParseJSON accepts.
const MaxJSONBytes = 8 << 20

// ParseJSON unmarshals the single JSON document in r into v.
// The whole input is read, so trailing data after a valid document is an error.
func ParseJSON(r io.Reader, v any) error {
	buf, err := io.ReadAll(io.LimitReader(r, MaxJSONBytes+1))
	if err != nil {
		return fmt.Errorf("error reading from io.Reader: %v", err)
	}
	if len(buf) > MaxJSONBytes {
		return fmt.Errorf("document exceeds %d bytes", MaxJSONBytes)
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("couldn't parse JSON: %v", err)
	}
	return nil
}
