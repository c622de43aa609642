package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads one export file and returns its records in file order.
// Content that is not valid JSON, or not an object/array of objects, yields
// a *MalformedInputError. Read failures are also reported as malformed input
// so a single unreadable file does not abort the run.
func Parse(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, malformed(path, "read failed", err)
	}
	return ParseBytes(path, data)
}

// ParseBytes parses export content already in memory; path is used for
// error reporting and provenance only.
func ParseBytes(path string, data []byte) ([]Record, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return nil, malformed(path, "file is empty", nil)
	}
	// Invalid bytes decode as U+FFFD and would collide in canonical keys.
	if !utf8.Valid(data) {
		return nil, malformed(path, "not JSON text", ErrInvalidUTF8)
	}

	var elements []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &elements); err != nil {
			return nil, malformed(path, "invalid JSON", err)
		}
	case '{':
		if !json.Valid(data) {
			return nil, malformed(path, "invalid JSON", json.Unmarshal(data, new(any)))
		}
		elements = []json.RawMessage{data}
	default:
		if !json.Valid(data) {
			return nil, malformed(path, "invalid JSON", json.Unmarshal(data, new(any)))
		}
		return nil, malformed(path, "top-level value must be an array or object", nil)
	}

	records := make([]Record, 0, len(elements))
	for i, element := range elements {
		rec, err := NewRecord(element)
		if err != nil {
			return nil, malformed(path, fmt.Sprintf("element %d", i), err)
		}
		rec.Source = path
		rec.Index = i
		records = append(records, rec)
	}
	return records, nil
}
