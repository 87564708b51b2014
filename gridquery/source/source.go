// Package source defines the lazy queryable collection that translated grid
// requests are applied to.
package source

import (
	"context"
	"strings"

	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/record"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection is ascending only for "asc" (any case), descending otherwise
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Asc)) {
		return Asc
	}
	return Desc
}

// SortKey is one ordering key
type SortKey struct {
	Field *record.Accessor
	Dir   Direction
}

// Queryable is a lazily evaluated collection of T. Builder methods return a
// new Queryable and never modify the receiver; nothing runs until List or
// Count is called.
type Queryable[T any] interface {
	// RecordType describes the records of the collection
	RecordType() *record.Type

	Filter(e expr.Expr) Queryable[T]
	// OrderBy replaces any ordering with key as the primary sort key
	OrderBy(key *record.Accessor, dir Direction) Queryable[T]
	// ThenBy breaks ties of the current ordering with key. Without a prior
	// OrderBy it behaves like OrderBy.
	ThenBy(key *record.Accessor, dir Direction) Queryable[T]
	Skip(n int) Queryable[T]
	Take(n int) Queryable[T]

	List(ctx context.Context) ([]T, error)
	Count(ctx context.Context) (int64, error)
}
