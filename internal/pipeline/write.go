package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"replay/internal/export"
	"replay/internal/fileutil"
)

const outputMode = 0o644

// Write serializes records as one JSON array and replaces outputPath
// atomically. Compact output is the whole array on one line.
func Write(records []export.Record, outputPath string, indent bool) error {
	err := fileutil.WriteFileAtomic(outputPath, outputMode, func(w io.Writer) error {
		return Encode(w, records, indent)
	})
	if err != nil {
		return &WriteFailureError{Path: outputPath, Err: err}
	}
	return nil
}

// Encode writes the JSON array form of records to w.
func Encode(w io.Writer, records []export.Record, indent bool) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	if !indent {
		bw.WriteByte('[')
		for i, rec := range records {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.Write(rec.Raw)
		}
		bw.WriteString("]\n")
		return bw.Flush()
	}

	if len(records) == 0 {
		bw.WriteString("[]\n")
		return bw.Flush()
	}
	var buf bytes.Buffer
	bw.WriteString("[\n")
	for i, rec := range records {
		buf.Reset()
		if err := json.Indent(&buf, rec.Raw, "  ", "  "); err != nil {
			return err
		}
		bw.WriteString("  ")
		bw.Write(buf.Bytes())
		if i < len(records)-1 {
			bw.WriteByte(',')
		}
		bw.WriteByte('\n')
	}
	bw.WriteString("]\n")
	return bw.Flush()
}
