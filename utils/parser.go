package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseDetails checks that raw is a JSON object and returns its compact
// encoding, which is what gets written to the content store.
func ParseDetails(raw json.RawMessage) ([]byte, error) {
	if err := validate.Var(string(raw), "json"); err != nil {
		return nil, fmt.Errorf("details must be valid JSON")
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("details must be a JSON object")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, fmt.Errorf("failed to compact details: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDetails parses a details document fetched from the content store.
func DecodeDetails(data []byte) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse details: %w", err)
	}
	return json.RawMessage(data), nil
}
