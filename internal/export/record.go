package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Key identifies a record by its canonical serialization.
type Key [sha256.Size]byte

// Record is one listening-history entry. Raw holds the compacted original
// bytes, which are what the clean dataset contains.
type Record struct {
	Raw    json.RawMessage
	Key    Key
	Source string
	Index  int
}

// NewRecord validates that raw is a JSON object and computes its canonical key.
func NewRecord(raw []byte) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Record{}, fmt.Errorf("record is not a JSON object")
	}
	if !utf8.Valid(raw) {
		return Record{}, ErrInvalidUTF8
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return Record{}, fmt.Errorf("compact record: %w", err)
	}
	canonical, err := Canonical(compact.Bytes())
	if err != nil {
		return Record{}, err
	}
	return Record{Raw: json.RawMessage(compact.Bytes()), Key: sha256.Sum256(canonical)}, nil
}

// Canonical re-serializes a JSON value with object keys sorted at every depth,
// whitespace removed, and number literals kept verbatim. Objects that repeat
// a member name yield ErrDuplicateMember.
func Canonical(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var buf bytes.Buffer
	if err := writeCanonical(&buf, dec); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode record: trailing data after value")
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return writeObject(buf, dec)
		case '[':
			return writeArray(buf, dec)
		}
		return fmt.Errorf("decode record: unexpected %q", v)
	case string:
		return writeString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("decode record: unexpected token %T", tok)
	}
	return nil
}

type member struct {
	name  string
	value []byte
}

func writeObject(buf *bytes.Buffer, dec *json.Decoder) error {
	var members []member
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode record: object key is %T", tok)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateMember, name)
		}
		seen[name] = struct{}{}

		var value bytes.Buffer
		if err := writeCanonical(&value, dec); err != nil {
			return err
		}
		members = append(members, member{name: name, value: value.Bytes()})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	slices.SortFunc(members, func(a, b member) int { return strings.Compare(a.name, b.name) })
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, m.name); err != nil {
			return err
		}
		buf.WriteByte(':')
		buf.Write(m.value)
	}
	buf.WriteByte('}')
	return nil
}

func writeArray(buf *bytes.Buffer, dec *json.Decoder) error {
	buf.WriteByte('[')
	for first := true; dec.More(); first = false {
		if !first {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, dec); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	buf.WriteByte(']')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var scratch bytes.Buffer
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	buf.Write(bytes.TrimSuffix(scratch.Bytes(), []byte{'\n'}))
	return nil
}

// Fields decodes the top-level members of the record.
func (r Record) Fields() (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Raw, &fields); err != nil {
		return nil, fmt.Errorf("decode record fields: %w", err)
	}
	return fields, nil
}
