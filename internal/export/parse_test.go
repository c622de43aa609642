package export_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"replay/internal/export"
)

func TestParseArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	content := "\xEF\xBB\xBF[\n  {\"ts\": 1, \"id\": \"x\"},\n  {\"ts\":2,\"id\":\"y\"}\n]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := export.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if string(records[0].Raw) != `{"ts":1,"id":"x"}` {
		t.Fatalf("expected compacted original order, got %s", records[0].Raw)
	}
	if records[1].Source != path || records[1].Index != 1 {
		t.Fatalf("unexpected provenance %+v", records[1])
	}
}

func TestParseSingleObject(t *testing.T) {
	records, err := export.ParseBytes("one.json", []byte(`{"ts":"2020-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestParseEmptyArrayIsValid(t *testing.T) {
	records, err := export.ParseBytes("empty.json", []byte(" [ ] "))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestParseMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"truncated":      `[{"ts":1}`,
		"not json":       `hello`,
		"scalar":         `42`,
		"string":         `"text"`,
		"scalar element": `[{"ts":1}, 3]`,
		"null element":   `[null]`,
		"nested array":   `[[{"ts":1}]]`,
		"trailing data":  `[{"ts":1}] {"ts":2}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := export.ParseBytes("bad.json", []byte(content))
			var malformed *export.MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedInputError, got %v", err)
			}
			if malformed.Path != "bad.json" {
				t.Fatalf("expected offending path, got %q", malformed.Path)
			}
		})
	}
}

func TestParseMissingFileIsMalformed(t *testing.T) {
	_, err := export.Parse(filepath.Join(t.TempDir(), "missing.json"))
	var malformed *export.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}

func TestCanonicalKeyIgnoresKeyOrderAndWhitespace(t *testing.T) {
	a, err := export.NewRecord([]byte(`{"ts":1,"meta":{"b":2,"a":[1,{"y":1,"x":2}]},"id":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	b, err := export.NewRecord([]byte("{ \"id\" : \"x\", \"meta\": {\"a\": [1, {\"x\":2,\"y\":1}], \"b\": 2}, \"ts\": 1 }"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Key != b.Key {
		t.Fatal("expected equal canonical keys")
	}
	if string(a.Raw) == string(b.Raw) {
		t.Fatal("expected original forms to be preserved separately")
	}
}

func TestCanonicalKeyDistinguishesValues(t *testing.T) {
	pairs := [][2]string{
		{`{"ts":1}`, `{"ts":2}`},
		{`{"ts":1}`, `{"ts":"1"}`},
		{`{"ts":1}`, `{"ts":1.0}`},
		{`{"a":[1,2]}`, `{"a":[2,1]}`},
		{`{"a":null}`, `{}`},
	}
	for _, pair := range pairs {
		a, err := export.NewRecord([]byte(pair[0]))
		if err != nil {
			t.Fatal(err)
		}
		b, err := export.NewRecord([]byte(pair[1]))
		if err != nil {
			t.Fatal(err)
		}
		if a.Key == b.Key {
			t.Fatalf("%s and %s should differ", pair[0], pair[1])
		}
	}
}

func TestCanonicalPreservesNumberLiterals(t *testing.T) {
	got, err := export.Canonical([]byte(`{"b":12345678901234567890,"a":"<&>"}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":"<&>","b":12345678901234567890}` {
		t.Fatalf("unexpected canonical form %s", got)
	}
}

func TestParseRejectsDuplicateMembers(t *testing.T) {
	cases := map[string]string{
		"top level": `[{"k":1,"k":2},{"k":2}]`,
		"nested":    `[{"meta":{"a":1,"a":1}}]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := export.ParseBytes("dup.json", []byte(content))
			var malformed *export.MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedInputError, got %v", err)
			}
			if !errors.Is(err, export.ErrDuplicateMember) {
				t.Fatalf("expected ErrDuplicateMember, got %v", err)
			}
		})
	}

	// The same name in sibling objects is fine.
	records, err := export.ParseBytes("ok.json", []byte(`[{"a":{"k":1},"b":{"k":1}}]`))
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one record, got %d (%v)", len(records), err)
	}
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	_, err := export.ParseBytes("latin1.json", []byte("[{\"n\":\"\xff\"},{\"n\":\"\xfe\"}]"))
	var malformed *export.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if !errors.Is(err, export.ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}

	if _, err := export.NewRecord([]byte("{\"n\":\"\xff\"}")); !errors.Is(err, export.ErrInvalidUTF8) {
		t.Fatalf("NewRecord: expected ErrInvalidUTF8, got %v", err)
	}
}

func TestCanonicalSortsNestedMembers(t *testing.T) {
	got, err := export.Canonical([]byte(`{"z":[{"b":true,"a":null}],"y":"é"}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"y":"é","z":[{"a":null,"b":true}]}` {
		t.Fatalf("unexpected canonical form %s", got)
	}
}
