// Package match builds single-field predicates from raw search text.
package match

import (
	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/record"
)

// Build returns the predicate matching raw against the field at acc. It
// reports false when no predicate applies: raw does not parse as the
// field's enum member or number, or the accessor is unusable.
//
// Nullable fields need no separate handling since absent values never
// satisfy a predicate.
func Build(acc *record.Accessor, raw string) (e expr.Expr, ok bool) {
	defer func() {
		if recover() != nil {
			e, ok = nil, false
		}
	}()

	if acc == nil {
		return nil, false
	}
	leaf := acc.Leaf()
	switch leaf.Kind {
	case record.KindText:
		return expr.Match(expr.Contains{Field: acc, Substring: raw}), true
	case record.KindEnum:
		v, err := record.ParseEnum(leaf.GoType, raw)
		if err != nil {
			return nil, false
		}
		return expr.Match(expr.Equals{Field: acc, Value: v}), true
	case record.KindNumeric:
		v, err := record.ParseNumber(leaf.GoType, raw)
		if err != nil {
			return nil, false
		}
		return expr.Match(expr.Equals{Field: acc, Value: v}), true
	default:
		return expr.Match(expr.ContainsFormatted{Field: acc, Substring: raw}), true
	}
}
