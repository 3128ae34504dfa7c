package definition

import (
	"sort"
	"strings"

	"deskreport/pkg/contracts/domain"
)

// Catalog lists, per source, the field names a report may project. A Catalog
// is immutable once built; every accessor hands out copies.
type Catalog struct {
	sources map[string][]string
}

// NewCatalog builds a catalog from a source to field list mapping. Source
// keys are lowercased.
func NewCatalog(sources map[string][]string) Catalog {
	c := Catalog{sources: make(map[string][]string, len(sources))}
	for name, fields := range sources {
		c.sources[strings.ToLower(name)] = append([]string(nil), fields...)
	}
	return c
}

// DefaultCatalog returns the four built-in sources.
func DefaultCatalog() Catalog {
	return NewCatalog(map[string][]string{
		"tickets": {
			"Id", "Subject", "Status", "Priority", "Category", "AssignedTo",
			"ContactName", "LocationName", "CreatedAt", "UpdatedAt", "DueAt",
		},
		"contacts": {
			"Id", "Name", "Email", "Phone", "Company", "Title", "CreatedAt",
		},
		"locations": {
			"Id", "Name", "Address", "City", "Region", "Country", "PostalCode", "CreatedAt",
		},
		"inventory": {
			"Id", "Name", "Sku", "Category", "Quantity", "UnitCost", "LocationName", "CreatedAt",
		},
	})
}

// Sources returns a copy of the whole catalog.
func (c Catalog) Sources() map[string][]string {
	out := make(map[string][]string, len(c.sources))
	for name, fields := range c.sources {
		out[name] = append([]string(nil), fields...)
	}
	return out
}

// SourceNames returns the source keys in sorted order.
func (c Catalog) SourceNames() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields returns the allowed fields of a source.
func (c Catalog) Fields(source string) ([]string, bool) {
	fields, ok := c.sources[strings.ToLower(source)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), fields...), true
}

// HasSource reports whether the source is known.
func (c Catalog) HasSource(source string) bool {
	_, ok := c.sources[strings.ToLower(source)]
	return ok
}

// Has reports whether field is allowed for source. Field names are matched
// exactly.
func (c Catalog) Has(source, field string) bool {
	for _, f := range c.sources[strings.ToLower(source)] {
		if f == field {
			return true
		}
	}
	return false
}

// UnknownFields returns the definition fields the catalog does not list for
// the definition's source, in definition order.
func (c Catalog) UnknownFields(def domain.ReportDefinition) []string {
	var unknown []string
	for _, f := range def.Fields {
		if !c.Has(def.Source, f) {
			unknown = append(unknown, f)
		}
	}
	return unknown
}
