package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/gridquery/expr"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/source"
	"github.com/gridquery/gridquery/gridquery/source/memory"
	"github.com/gridquery/gridquery/gridquery/storage"
	"github.com/gridquery/gridquery/gridquery/storage/sqlite"
)

type manager struct {
	Name string
}

type person struct {
	ID      int64 `db:"id"`
	Name    string
	Age     int
	Nick    *string
	Rank    record.Optional[int]
	Balance decimal.Decimal
	Manager *manager
	Extra   string
}

const schemaSQL = `CREATE TABLE people (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	age INTEGER NOT NULL,
	nick TEXT,
	rank INTEGER,
	balance NUMERIC NOT NULL,
	manager_name TEXT
)`

const seedSQL = `INSERT INTO people (id, name, age, nick, rank, balance, manager_name) VALUES
	(1, 'Alice', 30, NULL, 2, 10.50, 'Ann'),
	(2, 'Bob 30', 25, 'bobby', NULL, 3.00, NULL),
	(3, 'Carol', 41, 'cc', 1, 7.25, 'Ann'),
	(4, 'Dave', 30, NULL, NULL, 0, 'Dan'),
	(5, 'Eve', 25, 'e', 3, 1.00, NULL)`

func strPtr(s string) *string { return &s }

func seedPeople() []person {
	return []person{
		{ID: 1, Name: "Alice", Age: 30, Rank: record.Some(2), Balance: decimal.RequireFromString("10.5"), Manager: &manager{Name: "Ann"}},
		{ID: 2, Name: "Bob 30", Age: 25, Nick: strPtr("bobby"), Balance: decimal.NewFromInt(3)},
		{ID: 3, Name: "Carol", Age: 41, Nick: strPtr("cc"), Rank: record.Some(1), Balance: decimal.RequireFromString("7.25"), Manager: &manager{Name: "Ann"}},
		{ID: 4, Name: "Dave", Age: 30, Balance: decimal.Zero, Manager: &manager{Name: "Dan"}},
		{ID: 5, Name: "Eve", Age: 25, Nick: strPtr("e"), Rank: record.Some(3), Balance: decimal.NewFromInt(1)},
	}
}

type fixture struct {
	adapter *sqlite.Adapter
	table   *storage.Table[person]
	memory  *memory.Source[person]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	adapter := sqlite.New(filepath.Join(t.TempDir(), "grid.db"))
	db, err := adapter.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range []string{schemaSQL, seedSQL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec: %v", err)
		}
	}

	table, err := storage.NewTable[person](ctx, db, adapter, "people", storage.TableOptions{})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return &fixture{adapter: adapter, table: table, memory: memory.MustNew(seedPeople())}
}

func ids(t *testing.T, q source.Queryable[person]) []int64 {
	t.Helper()
	items, err := q.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	out := make([]int64, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func (f *fixture) acc(t *testing.T, path string) *record.Accessor {
	t.Helper()
	a, ok := record.Resolve(f.table.RecordType(), path)
	if !ok {
		t.Fatalf("%s did not resolve", path)
	}
	return a
}

func TestListScansStructs(t *testing.T) {
	f := newFixture(t)
	items, err := f.table.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(items))
	}

	alice, bob := items[0], items[1]
	if alice.Name != "Alice" || alice.Age != 30 || alice.Nick != nil {
		t.Errorf("unexpected alice %+v", alice)
	}
	if !alice.Rank.HasValue() || alice.Rank.Value() != 2 {
		t.Errorf("expected rank 2, got %+v", alice.Rank)
	}
	if !alice.Balance.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("unexpected balance %s", alice.Balance)
	}
	if alice.Manager == nil || alice.Manager.Name != "Ann" {
		t.Errorf("expected nested manager, got %+v", alice.Manager)
	}
	if bob.Nick == nil || *bob.Nick != "bobby" || bob.Rank.HasValue() {
		t.Errorf("unexpected bob %+v", bob)
	}
	if bob.Manager != nil {
		t.Errorf("all-NULL nested struct should stay nil, got %+v", bob.Manager)
	}
}

func TestTranslateMatchesMemorySource(t *testing.T) {
	f := newFixture(t)
	cols := []gridquery.Column{
		{Data: "Name", Searchable: true, Orderable: true},
		{Data: "Age", Searchable: true, Orderable: true},
		{Data: "Nick", Orderable: true},
		{Data: "Rank", Orderable: true},
		{Data: "Balance", Orderable: true},
		{Data: "Manager.Name", Orderable: true},
	}
	withSearch := func(i int, v string) []gridquery.Column {
		c := append([]gridquery.Column(nil), cols...)
		c[i].Search = &gridquery.Search{Value: v}
		return c
	}

	reqs := map[string]*gridquery.Request{
		"plain":             {Columns: cols},
		"global":            {Columns: cols, Search: &gridquery.Search{Value: "30"}},
		"nullable text":     {Columns: withSearch(2, "b")},
		"optional int":      {Columns: withSearch(3, "2")},
		"decimal":           {Columns: withSearch(4, "3")},
		"nested":            {Columns: withSearch(5, "An")},
		"unparseable":       {Columns: withSearch(1, "abc")},
		"age desc name asc": {Columns: cols, Order: []gridquery.Order{{Column: 1, Dir: "desc"}, {Column: 0, Dir: "asc"}}},
		"nick asc":          {Columns: cols, Order: []gridquery.Order{{Column: 2, Dir: "asc"}}},
		"manager desc":      {Columns: cols, Order: []gridquery.Order{{Column: 5, Dir: "desc"}}},
		"rank desc paged":   {Columns: cols, Order: []gridquery.Order{{Column: 3}}, Start: 1, Length: 3},
		"skip only":         {Columns: cols, Start: 3},
		"past the end":      {Columns: cols, Start: 9, Length: 2},
		"global paged":      {Columns: cols, Search: &gridquery.Search{Value: "30"}, Order: []gridquery.Order{{Column: 0, Dir: "asc"}}, Start: 1, Length: 1},
	}
	for name, req := range reqs {
		mu, mp, err := gridquery.Translate[person](f.memory, req)
		if err != nil {
			t.Fatalf("%s: memory translate: %v", name, err)
		}
		tu, tp, err := gridquery.Translate[person](f.table, req)
		if err != nil {
			t.Fatalf("%s: table translate: %v", name, err)
		}
		if want, got := fmt.Sprint(ids(t, mu)), fmt.Sprint(ids(t, tu)); want != got {
			t.Errorf("%s unpaginated: memory %s, table %s", name, want, got)
		}
		if want, got := fmt.Sprint(ids(t, mp)), fmt.Sprint(ids(t, tp)); want != got {
			t.Errorf("%s paginated: memory %s, table %s", name, want, got)
		}
		n, err := tu.Count(context.Background())
		if err != nil {
			t.Fatalf("%s: Count: %v", name, err)
		}
		if m, _ := mu.Count(context.Background()); m != n {
			t.Errorf("%s: memory count %d, table count %d", name, m, n)
		}
	}
}

func TestOperationsAfterWindow(t *testing.T) {
	f := newFixture(t)
	age := f.acc(t, "Age")
	name := f.acc(t, "Name")
	thirty := expr.Match(expr.Equals{Field: age, Value: 30})

	chains := map[string]func(q source.Queryable[person]) source.Queryable[person]{
		"skip filter take": func(q source.Queryable[person]) source.Queryable[person] {
			return q.Skip(1).Filter(thirty).Take(1)
		},
		"take then order": func(q source.Queryable[person]) source.Queryable[person] {
			return q.Take(3).OrderBy(name, source.Desc)
		},
		"skip skip": func(q source.Queryable[person]) source.Queryable[person] {
			return q.Skip(1).Skip(1)
		},
		"take skip take": func(q source.Queryable[person]) source.Queryable[person] {
			return q.Take(4).Skip(1).Take(2)
		},
		"order skip then": func(q source.Queryable[person]) source.Queryable[person] {
			return q.OrderBy(age, source.Asc).Skip(1).ThenBy(name, source.Desc)
		},
		"take zero": func(q source.Queryable[person]) source.Queryable[person] {
			return q.Take(0)
		},
	}
	for label, chain := range chains {
		want := fmt.Sprint(ids(t, chain(f.memory)))
		got := fmt.Sprint(ids(t, chain(f.table)))
		if want != got {
			t.Errorf("%s: memory %s, table %s", label, want, got)
		}
	}

	q, _, err := f.table.Skip(2).Filter(thirty).(*storage.Table[person]).SQL()
	if err != nil {
		t.Fatalf("SQL: %v", err)
	}
	if !strings.Contains(q, "LIMIT -1 OFFSET 2") || !strings.Contains(q, "AS q1") {
		t.Errorf("expected windowed subquery, got %s", q)
	}
}

func TestFieldWithoutColumnIsSkipped(t *testing.T) {
	f := newFixture(t)
	if _, ok := record.Resolve(f.table.RecordType(), "Extra"); ok {
		t.Fatalf("Extra has no column and should not resolve")
	}

	g, err := gridquery.NewGrid[person]("people", f.table)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	req := &gridquery.Request{
		Search: &gridquery.Search{Value: "30"},
		Columns: []gridquery.Column{
			{Data: "Name", Searchable: true},
			{Data: "Age", Searchable: true},
			{Data: "Extra", Searchable: true, Orderable: true},
		},
		Order:  []gridquery.Order{{Column: 2, Dir: "asc"}},
		Length: -1,
	}
	resp, err := g.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.RecordsTotal != 5 || resp.RecordsFiltered != 3 {
		t.Fatalf("unexpected counts %d/%d", resp.RecordsTotal, resp.RecordsFiltered)
	}

	mem, err := gridquery.NewGrid[person]("people", f.memory)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	want, err := mem.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute memory: %v", err)
	}
	if want.RecordsFiltered != 3 {
		t.Fatalf("memory source filtered %d", want.RecordsFiltered)
	}

	plan, err := g.Explain(req)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	var skipped int
	for _, step := range plan.ExplainSteps {
		if strings.Contains(step, string(gridquery.ErrUnresolvedField)) && strings.Contains(step, `"Extra"`) {
			skipped++
		}
	}
	if skipped != 2 {
		t.Fatalf("expected search and order on Extra skipped, got steps %v", plan.ExplainSteps)
	}
}

func TestGridOverTable(t *testing.T) {
	f := newFixture(t)
	g, err := gridquery.NewGrid[person]("people", f.table)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	resp, err := g.Execute(context.Background(), &gridquery.Request{
		Draw:    3,
		Columns: []gridquery.Column{{Data: "age", Searchable: true, Search: &gridquery.Search{Value: "30"}}},
		Length:  1,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Draw != 3 || resp.RecordsTotal != 5 || resp.RecordsFiltered != 2 || resp.ContinuationToken == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got := resp.Data.([]person); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected alice only, got %+v", got)
	}
}

func TestOpenRowsIntrospects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	db, err := f.adapter.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	rows, err := storage.OpenRows(ctx, db, f.adapter, "people", storage.TableOptions{})
	if err != nil {
		t.Fatalf("OpenRows: %v", err)
	}
	kinds := map[string]record.Kind{
		"id":           record.KindNumeric,
		"name":         record.KindText,
		"balance":      record.KindNumeric,
		"manager_name": record.KindText,
	}
	for col, want := range kinds {
		fld, ok := rows.RecordType().Field(col)
		if !ok || fld.Kind != want {
			t.Errorf("%s: expected kind %s", col, want)
		}
	}

	unpaginated, _, err := gridquery.Translate[record.Row](rows, &gridquery.Request{
		Columns: []gridquery.Column{{Data: "AGE", Search: &gridquery.Search{Value: "30"}}},
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	items, err := unpaginated.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0]["age"] != int64(30) || items[0]["name"] != "Alice" {
		t.Fatalf("unexpected rows %v", items)
	}
	if _, ok := items[1]["balance"].(decimal.Decimal); !ok {
		t.Fatalf("expected decimal balance, got %T", items[1]["balance"])
	}

	if _, err := storage.OpenRows(ctx, db, f.adapter, "missing", storage.TableOptions{}); err == nil {
		t.Fatalf("expected missing table to fail")
	}
	if _, err := storage.OpenRows(ctx, db, f.adapter, "people; DROP TABLE people", storage.TableOptions{}); err == nil {
		t.Fatalf("expected invalid table name to fail")
	}
}
