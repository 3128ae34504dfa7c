package sources

import (
	"context"
)

// Accessor reads one column of the row at index i.
type Accessor func(i int) any

// Dataset is the in-memory result of one bulk read of a source.
type Dataset interface {
	Len() int
	// Accessor returns the reader for a column, or false when the source
	// has no column with that exact name.
	Accessor(column string) (Accessor, bool)
}

// Source is a resolved entity collection.
type Source interface {
	Kind() Kind
	Columns() []string
	Fetch(ctx context.Context, workspaceID string) (Dataset, error)
}

type column[T any] struct {
	name string
	get  func(*T) any
}

// table adapts a typed lister and its column accessors to Source.
type table[T any] struct {
	kind    Kind
	columns []column[T]
	list    func(ctx context.Context, workspaceID string) ([]T, error)
}

func (t *table[T]) Kind() Kind { return t.kind }

func (t *table[T]) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

func (t *table[T]) Fetch(ctx context.Context, workspaceID string) (Dataset, error) {
	items, err := t.list(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return &dataset[T]{items: items, columns: t.columns}, nil
}

type dataset[T any] struct {
	items   []T
	columns []column[T]
}

func (d *dataset[T]) Len() int { return len(d.items) }

func (d *dataset[T]) Accessor(name string) (Accessor, bool) {
	for _, c := range d.columns {
		if c.name == name {
			get := c.get
			return func(i int) any { return get(&d.items[i]) }, true
		}
	}
	return nil, false
}
