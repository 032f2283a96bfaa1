package services

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// DecodeLabor reads a stored labor object. A missing or malformed value
// yields nil; malformed numbers inside a valid object become zero.
func DecodeLabor(raw []byte) *Labor {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil
	}
	return &Labor{
		Hours: cast.ToFloat64(obj["hours"]),
		Rate:  cast.ToFloat64(obj["rate"]),
	}
}

// DecodeNotes reads a stored notes list, dropping blank entries.
func DecodeNotes(raw []byte) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, it := range items {
		if s := strings.TrimSpace(cast.ToString(it)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
