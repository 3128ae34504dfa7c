// Package sources resolves the entity collections reports read from.
//
// Each Kind maps to a typed table holding the lister for that collection and
// an ordered set of column accessors. Registry is built from a Collaborators
// value with one field per kind, so adding a source means adding a Kind, a
// lister field and a table case together.
//
// MemoryRepository implements every lister over data seeded from a YAML
// fixtures file and is what the development server runs on.
package sources
