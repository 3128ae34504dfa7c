// Package exporter encodes and decodes report run artifacts.
//
// Artifacts use a small comma separated dialect shared by Writer and Reader:
//
//   - fields containing a comma, a double quote, "\n" or "\r" are quoted
//   - embedded quotes are doubled
//   - every record ends with "\n"
//
// Reader is an explicit four state machine (FieldStart, InField,
// InQuotedField, QuoteSeenInQuoted). It drops every "\r", treats a quote in
// the middle of an unquoted field as a literal character and accepts a final
// record without a trailing newline. It is not a strict RFC 4180 parser.
//
// FormatValue gives every entity value a single canonical text form, and
// ToXLSX turns a stored artifact into an Excel workbook for download.
//
// Example usage:
//
//	data, err := exporter.Encode([]string{"Id", "Name"}, [][]string{{"1", `Acme, "Inc"`}})
//	...
//	r := exporter.NewReader(bytes.NewReader(data))
//	header, _ := r.Read()
package exporter
