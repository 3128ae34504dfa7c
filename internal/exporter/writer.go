package exporter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ContentType is the media type of every artifact produced by Writer.
const ContentType = "text/csv"

// ErrNoColumns is returned by Encode for an empty header. A zero-field
// record encodes as an empty line, which reads back as one empty field.
var ErrNoColumns = errors.New("artifact has no columns")

// Writer encodes records in the artifact dialect: comma separated fields,
// one record per line terminated by "\n". A field is wrapped in double
// quotes only when it contains a comma, a double quote, "\n" or "\r";
// embedded quotes are doubled.
//
// Leading and trailing spaces are written as-is, which is where the dialect
// differs from encoding/csv.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer on top of w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes one record.
func (w *Writer) Write(record []string) error {
	for i, field := range record {
		if i > 0 {
			if err := w.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.writeField(field); err != nil {
			return err
		}
	}
	return w.w.WriteByte('\n')
}

// WriteAll writes every record and flushes.
func (w *Writer) WriteAll(records [][]string) error {
	for i, record := range records {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return w.Flush()
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func (w *Writer) writeField(field string) error {
	if !needsQuotes(field) {
		_, err := w.w.WriteString(field)
		return err
	}

	if err := w.w.WriteByte('"'); err != nil {
		return err
	}
	if _, err := w.w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
		return err
	}
	return w.w.WriteByte('"')
}

func needsQuotes(field string) bool {
	return strings.ContainsAny(field, ",\"\n\r")
}

// Encode serializes a header row followed by data rows.
func Encode(headers []string, rows [][]string) ([]byte, error) {
	if len(headers) == 0 {
		return nil, ErrNoColumns
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
