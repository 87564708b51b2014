package gridquery

import (
	"fmt"

	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/match"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/source"
)

// translator compiles one request against one record type and records
// explain steps, including the columns and order entries it skipped
type translator struct {
	typ          *record.Type
	opts         Options
	explainSteps []string
}

func newTranslator(typ *record.Type, opts Options) *translator {
	return &translator{typ: typ, opts: opts}
}

func (t *translator) explain(format string, args ...any) {
	t.explainSteps = append(t.explainSteps, fmt.Sprintf(format, args...))
}

func (t *translator) skip(kind ErrorKind, format string, args ...any) {
	t.explain("skip (%s) "+format, append([]any{kind}, args...)...)
}

// predicate resolves column i and builds its match for term
func (t *translator) predicate(i int, col Column, term string) (expr.Expr, bool) {
	acc, ok := record.Resolve(t.typ, col.Data)
	if !ok {
		t.skip(ErrUnresolvedField, "column %d: %q", i, col.Data)
		return nil, false
	}
	e, ok := match.Build(acc, term)
	if !ok {
		t.skip(ErrUnparseableValue, "column %d: %q as %s", i, term, acc.Leaf().Kind)
		return nil, false
	}
	return e, true
}

// global ORs the predicates of every searchable bound column. It returns nil
// when nothing applies.
func (t *translator) global(req *Request) expr.Expr {
	term, ok := req.Search.Term()
	if !ok || len(req.Columns) == 0 {
		return nil
	}
	var preds []expr.Expr
	for i, col := range req.Columns {
		if !col.Searchable || !col.Bound() {
			continue
		}
		if e, ok := t.predicate(i, col, term); ok {
			preds = append(preds, e)
		}
	}
	combined := expr.AnyOf(preds...)
	if combined != nil {
		t.explain("filter global: %s", expr.String(combined))
	}
	return combined
}

// columns returns one predicate per column carrying its own search term
func (t *translator) columns(req *Request) []expr.Expr {
	var out []expr.Expr
	for i, col := range req.Columns {
		term, ok := col.Search.Term()
		if !ok || !col.Bound() {
			continue
		}
		if t.opts.ColumnSearch == ColumnSearchSearchableOnly && !col.Searchable {
			t.explain("skip column %d: not searchable", i)
			continue
		}
		if e, ok := t.predicate(i, col, term); ok {
			t.explain("filter column %d: %s", i, expr.String(e))
			out = append(out, e)
		}
	}
	return out
}

// keys returns the valid sort keys in priority order
func (t *translator) keys(req *Request) []source.SortKey {
	if len(req.Order) == 0 || len(req.Columns) == 0 {
		return nil
	}
	var out []source.SortKey
	for _, o := range req.Order {
		if o.Column < 0 || o.Column >= len(req.Columns) {
			t.skip(ErrInvalidOrder, "order column %d: out of range", o.Column)
			continue
		}
		col := req.Columns[o.Column]
		if !col.Orderable || !col.Bound() {
			t.skip(ErrInvalidOrder, "order column %d: not orderable", o.Column)
			continue
		}
		acc, ok := record.Resolve(t.typ, col.Data)
		if !ok {
			t.skip(ErrUnresolvedField, "order column %d: %q", o.Column, col.Data)
			continue
		}
		key := source.SortKey{Field: acc, Dir: o.Direction()}
		if len(out) == 0 {
			t.explain("order by %s %s", acc.Path(), key.Dir)
		} else {
			t.explain("then by %s %s", acc.Path(), key.Dir)
		}
		out = append(out, key)
	}
	return out
}

func (t *translator) window(req *Request) (skip, take int) {
	if req.Start > 0 {
		skip = req.Start
		t.explain("skip %d", skip)
	}
	if req.Length > 0 {
		take = req.Length
		t.explain("take %d", take)
	}
	return skip, take
}
