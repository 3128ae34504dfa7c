// Package definition reads and writes report definition documents.
//
// A definition is a small JSON object:
//
//	{"source":"tickets","fields":["Id","Subject"],"filters":[]}
//
// Parse is tolerant and never fails; anything it cannot make sense of turns
// into the default tickets definition. Build is the editor-side counterpart
// that produces a compact document from a source name, a comma separated
// field list and an optional filters document.
//
// The Catalog describes which fields each source exposes. It is built once
// at startup and passed to the components that need it.
package definition
