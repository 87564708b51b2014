package storage

import (
	"errors"
	"fmt"

	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/record"
)

// ErrUnmappedField is returned when a filter or ordering references a field
// that has no column in the table
var ErrUnmappedField = errors.New("field is not mapped to a column")

// Encoder compiles filter expressions into SQL boolean expressions
type Encoder struct {
	dialect Dialect
	builder Builder
	columns map[string]bool
}

// NewEncoder returns an encoder accepting only the given columns
func NewEncoder(d Dialect, b Builder, columns map[string]bool) *Encoder {
	return &Encoder{dialect: d, builder: b, columns: columns}
}

// Column returns the quoted column of acc
func (e *Encoder) Column(acc *record.Accessor) (string, error) {
	col := acc.Column()
	if !e.columns[col] {
		return "", fmt.Errorf("%w: %s", ErrUnmappedField, acc.Path())
	}
	return e.dialect.QuoteIdent(col), nil
}

// Encode returns the SQL for x, "" for a nil expression
func (e *Encoder) Encode(x expr.Expr) (string, error) {
	switch n := x.(type) {
	case nil:
		return "", nil
	case expr.And:
		return e.binary("AND", n.Left, n.Right)
	case expr.Or:
		return e.binary("OR", n.Left, n.Right)
	case expr.Pred:
		return e.predicate(n.Predicate)
	default:
		return "", fmt.Errorf("unknown expression type %T", x)
	}
}

func (e *Encoder) binary(op string, left, right expr.Expr) (string, error) {
	l, err := e.Encode(left)
	if err != nil {
		return "", err
	}
	r, err := e.Encode(right)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", l, op, r), nil
}

func (e *Encoder) predicate(pred expr.Predicate) (string, error) {
	switch p := pred.(type) {
	case expr.Contains:
		col, err := e.Column(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s IS NOT NULL AND %s)", col, e.dialect.Contains(col, e.builder.Arg(p.Substring))), nil
	case expr.ContainsFormatted:
		col, err := e.Column(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s IS NOT NULL AND %s)", col, e.dialect.ContainsText(col, e.builder.Arg(p.Substring))), nil
	case expr.Equals:
		col, err := e.Column(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, e.builder.Value(p.Value)), nil
	default:
		return "", fmt.Errorf("unknown predicate type %T", pred)
	}
}
