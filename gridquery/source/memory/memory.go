// Package memory implements source.Queryable over an in-memory slice.
package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/source"
)

type opKind int

const (
	opFilter opKind = iota
	opOrder
	opSkip
	opTake
)

type op struct {
	kind   opKind
	filter expr.Expr
	keys   []source.SortKey
	n      int
}

// Source is a lazy, immutable view over a slice. Sorting is stable.
type Source[T any] struct {
	typ   *record.Type
	items []T
	ops   []op
}

// New returns a source over items, describing T by reflection
func New[T any](items []T) (*Source[T], error) {
	typ, err := record.TypeOf[T]()
	if err != nil {
		return nil, fmt.Errorf("describe record type: %w", err)
	}
	return &Source[T]{typ: typ, items: items}, nil
}

// MustNew is New that panics on error
func MustNew[T any](items []T) *Source[T] {
	s, err := New(items)
	if err != nil {
		panic(err)
	}
	return s
}

// NewWithType returns a source over items described by typ. It is how
// record.Row collections are exposed.
func NewWithType[T any](typ *record.Type, items []T) *Source[T] {
	return &Source[T]{typ: typ, items: items}
}

func (s *Source[T]) RecordType() *record.Type { return s.typ }

func (s *Source[T]) with(o op) *Source[T] {
	ops := make([]op, len(s.ops), len(s.ops)+1)
	copy(ops, s.ops)
	return &Source[T]{typ: s.typ, items: s.items, ops: append(ops, o)}
}

func (s *Source[T]) Filter(e expr.Expr) source.Queryable[T] {
	if e == nil {
		return s
	}
	return s.with(op{kind: opFilter, filter: e})
}

func (s *Source[T]) OrderBy(key *record.Accessor, dir source.Direction) source.Queryable[T] {
	return s.with(op{kind: opOrder, keys: []source.SortKey{{Field: key, Dir: dir}}})
}

func (s *Source[T]) ThenBy(key *record.Accessor, dir source.Direction) source.Queryable[T] {
	n := len(s.ops)
	if n == 0 || s.ops[n-1].kind != opOrder {
		return s.OrderBy(key, dir)
	}
	last := s.ops[n-1]
	keys := make([]source.SortKey, len(last.keys), len(last.keys)+1)
	copy(keys, last.keys)
	keys = append(keys, source.SortKey{Field: key, Dir: dir})

	ops := make([]op, n)
	copy(ops, s.ops)
	ops[n-1] = op{kind: opOrder, keys: keys}
	return &Source[T]{typ: s.typ, items: s.items, ops: ops}
}

func (s *Source[T]) Skip(n int) source.Queryable[T] {
	return s.with(op{kind: opSkip, n: n})
}

func (s *Source[T]) Take(n int) source.Queryable[T] {
	return s.with(op{kind: opTake, n: n})
}

// List materializes the view. The backing slice is never reordered.
func (s *Source[T]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]T, len(s.items))
	copy(out, s.items)

	for _, o := range s.ops {
		switch o.kind {
		case opFilter:
			kept := out[:0:0]
			for _, item := range out {
				if expr.Eval(o.filter, item) {
					kept = append(kept, item)
				}
			}
			out = kept
		case opOrder:
			sortStable(out, o.keys)
		case opSkip:
			n := max(o.n, 0)
			if n >= len(out) {
				out = out[:0]
			} else {
				out = out[n:]
			}
		case opTake:
			n := max(o.n, 0)
			if n < len(out) {
				out = out[:n]
			}
		}
	}
	return out, nil
}

func (s *Source[T]) Count(ctx context.Context) (int64, error) {
	items, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(items)), nil
}

func sortStable[T any](items []T, keys []source.SortKey) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range keys {
			a, _ := k.Field.Get(items[i])
			b, _ := k.Field.Get(items[j])
			c := record.Compare(a, b)
			if c == 0 {
				continue
			}
			if k.Dir == source.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
