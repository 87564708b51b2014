package expr

import "github.com/gridquery/gridquery/gridquery/record"

// Expr represents a filter expression over one record
type Expr interface {
	isExpr()
}

// And represents a boolean AND of two expressions
type And struct {
	Left  Expr
	Right Expr
}

func (And) isExpr() {}

// Or represents a boolean OR of two expressions
type Or struct {
	Left  Expr
	Right Expr
}

func (Or) isExpr() {}

// Pred wraps a predicate as an expression
type Pred struct {
	Predicate Predicate
}

func (Pred) isExpr() {}

// Predicate represents a single-field match
type Predicate interface {
	isPredicate()
	field() *record.Accessor
}

// Contains matches a text field that is present and contains Substring.
// Containment is ordinal and case-sensitive.
type Contains struct {
	Field     *record.Accessor
	Substring string
}

func (Contains) isPredicate()              {}
func (p Contains) field() *record.Accessor { return p.Field }

// ContainsFormatted matches a field whose value is present and whose textual
// form contains Substring
type ContainsFormatted struct {
	Field     *record.Accessor
	Substring string
}

func (ContainsFormatted) isPredicate()              {}
func (p ContainsFormatted) field() *record.Accessor { return p.Field }

// Equals matches a field whose value is present and equal to Value
type Equals struct {
	Field *record.Accessor
	Value any
}

func (Equals) isPredicate()              {}
func (p Equals) field() *record.Accessor { return p.Field }

// Match wraps a predicate as an expression
func Match(p Predicate) Expr {
	return Pred{Predicate: p}
}

// AllOf folds exprs into a left-deep AND. It returns nil for an empty list.
func AllOf(exprs ...Expr) Expr {
	return fold(exprs, func(l, r Expr) Expr { return And{Left: l, Right: r} })
}

// AnyOf folds exprs into a left-deep OR. It returns nil for an empty list.
func AnyOf(exprs ...Expr) Expr {
	return fold(exprs, func(l, r Expr) Expr { return Or{Left: l, Right: r} })
}

func fold(exprs []Expr, join func(l, r Expr) Expr) Expr {
	var out Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = join(out, e)
	}
	return out
}

// Fields collects the accessors referenced by e, in evaluation order
func Fields(e Expr) []*record.Accessor {
	var result []*record.Accessor
	fieldsInto(e, &result)
	return result
}

func fieldsInto(e Expr, result *[]*record.Accessor) {
	switch x := e.(type) {
	case And:
		fieldsInto(x.Left, result)
		fieldsInto(x.Right, result)
	case Or:
		fieldsInto(x.Left, result)
		fieldsInto(x.Right, result)
	case Pred:
		if x.Predicate != nil {
			*result = append(*result, x.Predicate.field())
		}
	}
}
