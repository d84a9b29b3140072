package sui

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotMoveObject is returned when content is missing or is not a move object
var ErrNotMoveObject = errors.New("content is not a move object")

// Fields is the field map of a move object
type Fields map[string]json.RawMessage

// DecodeFields extracts the field map from object content
func DecodeFields(content *ParsedContent) (Fields, error) {
	if !content.IsMoveObject() {
		return nil, ErrNotMoveObject
	}
	var fields Fields
	if err := json.Unmarshal(content.Fields, &fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	return fields, nil
}

// String returns a string field, or "" when absent or not a string
func (f Fields) String(name string) string {
	raw, ok := f[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// UID returns the id held in a UID field such as {"id": "0x.."}
func (f Fields) UID(name string) (string, bool) {
	raw, ok := f[name]
	if !ok {
		return "", false
	}
	var uid struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &uid); err != nil || uid.ID == "" {
		return "", false
	}
	return uid.ID, true
}

// Strings returns a vector<String> field, or nil
func (f Fields) Strings(name string) []string {
	raw, ok := f[name]
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
