package storage

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/source"
	"github.com/gridquery/gridquery/gridquery/storage/sqlbuilder"
)

const (
	// DefaultMaxDepth is how many levels of nested struct fields map to
	// flattened columns
	DefaultMaxDepth = 3

	keyAliasPrefix = "__k"
)

// TableOptions configures a Table
type TableOptions struct {
	// KeyColumns break ties of every ordering so pages are stable. Nil uses
	// the adapter default, or the primary key when the adapter has none. An
	// empty slice disables tie-breaking.
	KeyColumns []string
	MaxDepth   int
}

// Table is a lazy source.Queryable over one database table. Filters and
// orderings applied after a window wrap the windowed query as a subquery.
type Table[T any] struct {
	db      *sql.DB
	dialect Dialect
	style   sqlbuilder.PlaceholderStyle
	table   string
	typ     *record.Type
	cols    []*record.Accessor
	colset  map[string]bool
	keys    []string
	scan    func(rows *sql.Rows, n int) (T, error)
	top     *layer
}

type layer struct {
	inner   *layer
	filters []expr.Expr
	order   []source.SortKey
	skip    int
	take    int // < 0 when unlimited
}

func (l *layer) windowed() bool { return l.skip > 0 || l.take >= 0 }

func (l *layer) clone() *layer {
	c := *l
	c.filters = slices.Clone(l.filters)
	c.order = slices.Clone(l.order)
	return &c
}

func wrap(inner *layer) *layer {
	return &layer{inner: inner, take: -1}
}

// NewTable returns a source over table whose rows scan into the struct type
// T. Exported fields map to columns by `db` tag or snake_case name; nested
// struct fields map to their flattened column (`manager_name`). Fields with
// no column in the table are left zero and do not resolve against RecordType.
func NewTable[T any](ctx context.Context, db *sql.DB, adapter Adapter, table string, opts TableOptions) (*Table[T], error) {
	typ, err := record.TypeOf[T]()
	if err != nil {
		return nil, fmt.Errorf("describe record type: %w", err)
	}
	if reflect.TypeFor[T]().Kind() != reflect.Struct {
		return nil, fmt.Errorf("record type %s must be a struct", reflect.TypeFor[T]())
	}
	t, err := newTable[T](ctx, db, adapter, table, typ, opts)
	if err != nil {
		return nil, err
	}
	t.scan = t.scanStruct
	return t, nil
}

// OpenRows returns a source over table whose records are record.Row values
// described from the table's columns
func OpenRows(ctx context.Context, db *sql.DB, adapter Adapter, table string, opts TableOptions) (*Table[record.Row], error) {
	typ, err := Introspect(ctx, db, adapter, table)
	if err != nil {
		return nil, err
	}
	t, err := newTable[record.Row](ctx, db, adapter, table, typ, opts)
	if err != nil {
		return nil, err
	}
	t.scan = t.scanRow
	return t, nil
}

func newTable[T any](ctx context.Context, db *sql.DB, adapter Adapter, table string, typ *record.Type, opts TableOptions) (*Table[T], error) {
	if db == nil || adapter == nil {
		return nil, fmt.Errorf("database and adapter are required")
	}
	if !ValidIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	d := adapter.Dialect()
	info, err := d.Columns(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	present := make(map[string]bool, len(info))
	for _, c := range info {
		present[c.Name] = true
	}

	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	t := &Table[T]{
		db:      db,
		dialect: d,
		style:   adapter.PlaceholderStyle(),
		table:   table,
		typ:     typ,
		colset:  make(map[string]bool),
		top:     wrap(nil),
	}
	for _, acc := range typ.Leaves(depth) {
		col := acc.Column()
		if !present[col] || t.colset[col] {
			continue
		}
		t.colset[col] = true
		t.cols = append(t.cols, acc)
	}
	if len(t.cols) == 0 {
		return nil, fmt.Errorf("no field of %s maps to a column of %s", typ.Name(), table)
	}
	// paths without a column resolve nowhere, so requests naming them skip
	// the column instead of failing at execution
	t.typ = typ.Restrict(t.cols)

	t.keys = opts.KeyColumns
	if t.keys == nil {
		t.keys = adapter.DefaultKeyColumns()
	}
	for _, k := range t.keys {
		if !ValidIdent(k) {
			return nil, fmt.Errorf("invalid key column %q", k)
		}
	}
	if t.keys == nil {
		if kl, ok := d.(KeyLister); ok {
			// read from the catalog; QuoteIdent renders them safely
			if t.keys, err = kl.PrimaryKey(ctx, db, table); err != nil {
				return nil, fmt.Errorf("read primary key of %s: %w", table, err)
			}
		}
	}
	return t, nil
}

// RecordType describes the records restricted to the fields that map to a
// column of the table
func (t *Table[T]) RecordType() *record.Type { return t.typ }

// KeyColumns returns the tie-breaking key columns. Empty means orderings
// with equal values may page unstably.
func (t *Table[T]) KeyColumns() []string { return t.keys }

// Columns returns the accessors of the selected columns
func (t *Table[T]) Columns() []*record.Accessor { return t.cols }

func (t *Table[T]) with(l *layer) *Table[T] {
	c := *t
	c.top = l
	return &c
}

func (t *Table[T]) Filter(e expr.Expr) source.Queryable[T] {
	if e == nil {
		return t
	}
	var l *layer
	if t.top.windowed() {
		l = wrap(t.top)
	} else {
		l = t.top.clone()
	}
	l.filters = append(l.filters, e)
	return t.with(l)
}

func (t *Table[T]) OrderBy(key *record.Accessor, dir source.Direction) source.Queryable[T] {
	var l *layer
	if t.top.windowed() {
		l = wrap(t.top)
	} else {
		l = t.top.clone()
	}
	l.order = []source.SortKey{{Field: key, Dir: dir}}
	return t.with(l)
}

func (t *Table[T]) ThenBy(key *record.Accessor, dir source.Direction) source.Queryable[T] {
	if t.top.windowed() || len(t.top.order) == 0 {
		return t.OrderBy(key, dir)
	}
	l := t.top.clone()
	l.order = append(l.order, source.SortKey{Field: key, Dir: dir})
	return t.with(l)
}

func (t *Table[T]) Skip(n int) source.Queryable[T] {
	if n <= 0 {
		return t
	}
	var l *layer
	if t.top.take >= 0 {
		l = wrap(t.top)
	} else {
		l = t.top.clone()
	}
	l.skip += n
	return t.with(l)
}

func (t *Table[T]) Take(n int) source.Queryable[T] {
	n = max(n, 0)
	l := t.top.clone()
	if l.take >= 0 {
		l.take = min(l.take, n)
	} else {
		l.take = n
	}
	return t.with(l)
}

// SQL returns the statement List runs
func (t *Table[T]) SQL() (string, []any, error) {
	b := sqlbuilder.New(t.style)
	q, _, err := t.build(b, t.top, true, false, 0)
	if err != nil {
		return "", nil, err
	}
	return q, b.Args(), nil
}

// CountSQL returns the statement Count runs
func (t *Table[T]) CountSQL() (string, []any, error) {
	b := sqlbuilder.New(t.style)
	q, _, err := t.build(b, t.top, true, true, 0)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS cnt", q), b.Args(), nil
}

func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	q, args, err := t.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, err)
	}
	defer rows.Close()

	n := len(t.cols) + len(t.keys)
	var out []T
	for rows.Next() {
		item, err := t.scan(rows, n)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.table, err)
	}
	return out, nil
}

func (t *Table[T]) Count(ctx context.Context) (int64, error) {
	q, args, err := t.CountSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := t.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.table, err)
	}
	return n, nil
}

// build renders l and returns its effective ordering. Only windowed layers
// and the outermost layer of a listing emit ORDER BY; other layers pass
// their ordering outwards.
func (t *Table[T]) build(b *sqlbuilder.Builder, l *layer, outermost, counting bool, depth int) (string, []source.SortKey, error) {
	var sb strings.Builder
	var inherited []source.SortKey
	if l.inner == nil {
		sb.WriteString("SELECT ")
		sb.WriteString(t.selectList())
		sb.WriteString(" FROM ")
		sb.WriteString(t.dialect.QuoteIdent(t.table))
	} else {
		inner, order, err := t.build(b, l.inner, false, counting, depth+1)
		if err != nil {
			return "", nil, err
		}
		inherited = order
		fmt.Fprintf(&sb, "SELECT * FROM (%s) AS q%d", inner, depth+1)
	}

	enc := NewEncoder(t.dialect, b, t.colset)
	where, err := enc.Encode(expr.AllOf(l.filters...))
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	order := l.order
	if len(order) == 0 {
		order = inherited
	}
	if l.windowed() || (outermost && !counting) {
		terms, err := t.orderTerms(enc, order)
		if err != nil {
			return "", nil, err
		}
		if len(terms) > 0 {
			sb.WriteString(" ORDER BY ")
			sb.WriteString(strings.Join(terms, ", "))
		}
	}
	if w := t.dialect.Window(l.skip, l.take); w != "" {
		sb.WriteString(" ")
		sb.WriteString(w)
	}
	return sb.String(), order, nil
}

func (t *Table[T]) orderTerms(enc *Encoder, order []source.SortKey) ([]string, error) {
	terms := make([]string, 0, len(order)+len(t.keys))
	for _, k := range order {
		col, err := enc.Column(k.Field)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t.dialect.OrderTerm(col, k.Dir == source.Desc, k.Field.Leaf().Kind))
	}
	for i := range t.keys {
		terms = append(terms, t.dialect.OrderTerm(t.dialect.QuoteIdent(keyAlias(i)), false, record.KindOther))
	}
	return terms, nil
}

func (t *Table[T]) selectList() string {
	parts := make([]string, 0, len(t.cols)+len(t.keys))
	for _, acc := range t.cols {
		parts = append(parts, t.dialect.QuoteIdent(acc.Column()))
	}
	for i, k := range t.keys {
		parts = append(parts, t.dialect.QuoteIdent(k)+" AS "+t.dialect.QuoteIdent(keyAlias(i)))
	}
	return strings.Join(parts, ", ")
}

func keyAlias(i int) string {
	return keyAliasPrefix + strconv.Itoa(i)
}
