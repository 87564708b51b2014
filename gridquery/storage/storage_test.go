package storage

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/source"
	"github.com/gridquery/gridquery/gridquery/storage/sqlbuilder"
)

// testDialect renders plain SQL with no decoration
type testDialect struct{}

func (testDialect) QuoteIdent(ident string) string { return ident }
func (testDialect) Contains(col, arg string) string {
	return "contains(" + col + ", " + arg + ")"
}
func (testDialect) ContainsText(col, arg string) string {
	return "contains(text(" + col + "), " + arg + ")"
}
func (testDialect) OrderTerm(col string, desc bool, _ record.Kind) string {
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
func (testDialect) Window(skip, take int) string {
	var parts []string
	if take >= 0 {
		parts = append(parts, "LIMIT "+strconv.Itoa(take))
	}
	if skip > 0 {
		parts = append(parts, "OFFSET "+strconv.Itoa(skip))
	}
	return strings.Join(parts, " ")
}
func (testDialect) Columns(context.Context, *sql.DB, string) ([]ColumnInfo, error) {
	return nil, nil
}

type level int

type widget struct {
	Name  string
	Size  int
	Level level
	Made  time.Time
	Note  string
}

func testTable(t *testing.T) *Table[widget] {
	t.Helper()
	typ, err := record.TypeOf[widget]()
	if err != nil {
		t.Fatalf("TypeOf: %v", err)
	}
	tbl := &Table[widget]{
		dialect: testDialect{},
		style:   sqlbuilder.PlaceholderQuestion,
		table:   "widgets",
		typ:     typ,
		colset:  map[string]bool{},
		keys:    []string{"rowid"},
		top:     wrap(nil),
	}
	for _, acc := range typ.Leaves(DefaultMaxDepth) {
		if acc.Column() == "note" {
			continue
		}
		tbl.cols = append(tbl.cols, acc)
		tbl.colset[acc.Column()] = true
	}
	return tbl
}

func field(t *testing.T, tbl *Table[widget], path string) *record.Accessor {
	t.Helper()
	acc, ok := record.Resolve(tbl.RecordType(), path)
	if !ok {
		t.Fatalf("%s did not resolve", path)
	}
	return acc
}

func TestEncodePredicates(t *testing.T) {
	tbl := testTable(t)
	b := sqlbuilder.New(sqlbuilder.PlaceholderQuestion)
	enc := NewEncoder(testDialect{}, b, tbl.colset)

	got, err := enc.Encode(expr.AllOf(
		expr.AnyOf(
			expr.Match(expr.Contains{Field: field(t, tbl, "Name"), Substring: "a"}),
			expr.Match(expr.ContainsFormatted{Field: field(t, tbl, "Made"), Substring: "2024"}),
		),
		expr.Match(expr.Equals{Field: field(t, tbl, "Level"), Value: level(2)}),
	))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := "(((name IS NOT NULL AND contains(name, ?)) OR (made IS NOT NULL AND contains(text(made), ?))) AND level = ?)"
	if got != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, got)
	}
	if args := b.Args(); !reflect.DeepEqual(args, []any{"a", "2024", int64(2)}) {
		t.Fatalf("unexpected args %#v", args)
	}

	if _, err := enc.Encode(expr.Match(expr.Contains{Field: field(t, tbl, "Note"), Substring: "x"})); !errors.Is(err, ErrUnmappedField) {
		t.Fatalf("expected unmapped field error, got %v", err)
	}
	if s, err := enc.Encode(nil); s != "" || err != nil {
		t.Fatalf("nil expression should encode to nothing")
	}
}

func TestTableSQL(t *testing.T) {
	tbl := testTable(t)
	name := field(t, tbl, "Name")
	size := field(t, tbl, "Size")

	q := tbl.Filter(expr.Match(expr.Equals{Field: size, Value: 1})).
		OrderBy(name, source.Desc).
		ThenBy(size, source.Asc).
		Skip(10).
		Take(5).(*Table[widget])

	got, args, err := q.SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := "SELECT name, size, level, made, rowid AS __k0 FROM widgets WHERE size = ? ORDER BY name DESC, size ASC, __k0 ASC LIMIT 5 OFFSET 10"
	if got != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, got)
	}
	if len(args) != 1 || args[0] != int64(1) {
		t.Fatalf("unexpected args %v", args)
	}

	count, _, err := tbl.Filter(expr.Match(expr.Equals{Field: size, Value: 1})).OrderBy(name, source.Asc).(*Table[widget]).CountSQL()
	if err != nil {
		t.Fatalf("CountSQL: %v", err)
	}
	if strings.Contains(count, "ORDER BY") || !strings.HasPrefix(count, "SELECT COUNT(*) FROM (") {
		t.Fatalf("unexpected count sql %s", count)
	}
}

func TestTableLayersAfterWindow(t *testing.T) {
	tbl := testTable(t)
	size := field(t, tbl, "Size")
	name := field(t, tbl, "Name")

	q := tbl.OrderBy(size, source.Asc).Take(3).Filter(expr.Match(expr.Contains{Field: name, Substring: "b"})).(*Table[widget])
	got, args, err := q.SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	want := "SELECT * FROM (SELECT name, size, level, made, rowid AS __k0 FROM widgets ORDER BY size ASC, __k0 ASC LIMIT 3) AS q1 " +
		"WHERE (name IS NOT NULL AND contains(name, ?)) ORDER BY size ASC, __k0 ASC"
	if got != want {
		t.Fatalf("expected\n%s\ngot\n%s", want, got)
	}
	if len(args) != 1 || args[0] != "b" {
		t.Fatalf("unexpected args %v", args)
	}

	// builders leave the receiver untouched
	base, _, _ := tbl.SQL()
	if base != "SELECT name, size, level, made, rowid AS __k0 FROM widgets ORDER BY __k0 ASC" {
		t.Fatalf("base query changed: %s", base)
	}
}

func TestGoTypeFor(t *testing.T) {
	cases := map[string]reflect.Type{
		"INTEGER":                  reflect.TypeFor[int64](),
		"bigint":                   reflect.TypeFor[int64](),
		"VARCHAR(20)":              reflect.TypeFor[string](),
		"character varying":        reflect.TypeFor[string](),
		"double precision":         reflect.TypeFor[float64](),
		"NUMERIC(10,2)":            decimalType,
		"boolean":                  reflect.TypeFor[bool](),
		"timestamp with time zone": timeType,
		"interval":                 nil,
		"BLOB":                     nil,
		"":                         nil,
	}
	for decl, want := range cases {
		if got := GoTypeFor(decl); got != want {
			t.Errorf("GoTypeFor(%q) = %v, want %v", decl, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := normalize([]byte("abc"), reflect.TypeFor[string]()); got != "abc" {
		t.Errorf("bytes should become string, got %#v", got)
	}
	if got := normalize(int64(1), reflect.TypeFor[bool]()); got != true {
		t.Errorf("sqlite booleans should convert, got %#v", got)
	}
	if got := normalize("12.30", decimalType); !got.(decimal.Decimal).Equal(decimal.RequireFromString("12.3")) {
		t.Errorf("unexpected decimal %v", got)
	}
	if got := normalize("2024-05-01 10:00:00", timeType); got.(time.Time).Year() != 2024 {
		t.Errorf("unexpected time %v", got)
	}
	if got := normalize(float64(3), reflect.TypeFor[int64]()); got != int64(3) {
		t.Errorf("unexpected %#v", got)
	}
	if got := normalize(nil, reflect.TypeFor[int64]()); got != nil {
		t.Errorf("nil should stay nil")
	}
}
