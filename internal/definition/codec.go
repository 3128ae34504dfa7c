package definition

import (
	"bytes"
	"encoding/json"
	"strings"

	"deskreport/pkg/contracts/domain"
)

// DefaultSource is used whenever a definition does not name a usable source.
const DefaultSource = "tickets"

var defaultFields = []string{"Id", "Subject", "Status", "CreatedAt"}

// Default returns the definition used for empty or unreadable input.
func Default() domain.ReportDefinition {
	fields := make([]string, len(defaultFields))
	copy(fields, defaultFields)
	return domain.ReportDefinition{
		Source: DefaultSource,
		Fields: fields,
	}
}

// Parse decodes a stored definition document. It never fails: input that is
// empty, not JSON, or not a JSON object yields Default().
//
// Within a valid object a missing or non-string "source" becomes the default
// source, "fields" keeps only non-blank string entries in order, and
// "filters" is kept verbatim as raw JSON. A null "filters" counts as absent.
func Parse(raw string) domain.ReportDefinition {
	if strings.TrimSpace(raw) == "" {
		return Default()
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		return Default()
	}

	def := domain.ReportDefinition{
		Source: DefaultSource,
		Fields: []string{},
	}

	if src, ok := doc["source"]; ok {
		var s string
		if json.Unmarshal(src, &s) == nil && strings.TrimSpace(s) != "" {
			def.Source = s
		}
	}

	if rawFields, ok := doc["fields"]; ok {
		var items []json.RawMessage
		if json.Unmarshal(rawFields, &items) == nil {
			for _, item := range items {
				var f string
				if json.Unmarshal(item, &f) != nil || strings.TrimSpace(f) == "" {
					continue
				}
				def.Fields = append(def.Fields, f)
			}
		}
	}

	if filters, ok := doc["filters"]; ok && !isNull(filters) {
		s := string(filters)
		def.FiltersJSON = &s
	}

	return def
}

// wireDefinition fixes the key order of built documents.
type wireDefinition struct {
	Source  string          `json:"source"`
	Fields  []string        `json:"fields"`
	Filters json.RawMessage `json:"filters"`
}

// Build assembles a definition document from editor input. The source is
// lowercased, fieldsCSV is split on commas with blanks dropped, and
// filtersJSON is embedded as-is when it is valid JSON, otherwise "[]".
// Non-blank filter text that does not parse is therefore not kept verbatim.
// The output is compact and deterministic.
func Build(source, fieldsCSV, filtersJSON string) string {
	w := wireDefinition{
		Source:  strings.ToLower(strings.TrimSpace(source)),
		Fields:  SplitFields(fieldsCSV),
		Filters: json.RawMessage("[]"),
	}
	if f := strings.TrimSpace(filtersJSON); f != "" && json.Valid([]byte(f)) {
		w.Filters = json.RawMessage(f)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		// Only reachable through a broken RawMessage, which json.Valid excludes.
		return `{"source":"` + DefaultSource + `","fields":[],"filters":[]}`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// SplitFields splits a comma separated field list, trimming entries and
// dropping empty ones. The result is never nil.
func SplitFields(csv string) []string {
	fields := []string{}
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
