package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/source/memory"
)

type status int

const (
	statusActive status = iota + 1
	statusRetired
)

func init() {
	record.RegisterEnum(map[string]status{"Active": statusActive, "Retired": statusRetired})
}

type person struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Status status `json:"status"`
}

var people = []person{
	{1, "Alice", 30, statusActive},
	{2, "Bob 30", 25, statusRetired},
	{3, "Carol", 41, statusActive},
	{4, "Dave", 30, statusRetired},
	{5, "Eve <admin>", 25, statusActive},
}

// brokenRunner fails every execution
type brokenRunner struct{ gridquery.Runner }

func (brokenRunner) Name() string { return "broken" }

func (brokenRunner) Execute(context.Context, *gridquery.Request) (*gridquery.Response, error) {
	return nil, gridquery.Wrap(gridquery.ErrSource, "list records", errors.New("db down"))
}

func newServer(t *testing.T) *HTTPServer {
	t.Helper()
	g, err := gridquery.NewGrid("people", memory.MustNew(people))
	require.NoError(t, err)
	s, err := New(g, brokenRunner{Runner: g})
	require.NoError(t, err)
	return s
}

func peopleColumns() []gridquery.Column {
	return []gridquery.Column{
		{Data: "Name", Searchable: true, Orderable: true},
		{Data: "Age", Searchable: true, Orderable: true},
		{Data: "Status", Searchable: true, Orderable: true},
	}
}

func do(t *testing.T, s *HTTPServer, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, strings.NewReader(string(b)))
		req.Header.Set(echo.HeaderContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

type gridResponse struct {
	Draw              int      `json:"draw"`
	RecordsTotal      int64    `json:"recordsTotal"`
	RecordsFiltered   int64    `json:"recordsFiltered"`
	Data              []person `json:"data"`
	Error             string   `json:"error"`
	ContinuationToken string   `json:"continuationToken"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) gridResponse {
	t.Helper()
	var out gridResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func names(items []person) []string {
	out := make([]string, len(items))
	for i, p := range items {
		out[i] = p.Name
	}
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newServer(t)
	rec := do(t, s, http.MethodGet, "/hc", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestListGrids(t *testing.T) {
	s := newServer(t)
	rec := do(t, s, http.MethodGet, "/grids", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []GridInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "broken", out[0].Name)
	assert.Equal(t, "people", out[1].Name)
	assert.Equal(t, "person", out[1].Record)
}

func TestDuplicateGrid(t *testing.T) {
	g, err := gridquery.NewGrid("people", memory.MustNew(people))
	require.NoError(t, err)
	_, err = New(g, g)
	require.Error(t, err)
	assert.True(t, gridquery.IsKind(err, gridquery.ErrConfig))
}

func TestQueryGridPost(t *testing.T) {
	s := newServer(t)
	rec := do(t, s, http.MethodPost, "/grids/people", gridquery.Request{
		Draw:    3,
		Length:  1,
		Search:  &gridquery.Search{Value: "30"},
		Columns: peopleColumns(),
		Order:   []gridquery.Order{{Column: 0, Dir: "desc"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, 3, out.Draw)
	assert.EqualValues(t, 5, out.RecordsTotal)
	assert.EqualValues(t, 3, out.RecordsFiltered)
	assert.Equal(t, []string{"Dave"}, names(out.Data))
	require.NotEmpty(t, out.ContinuationToken)

	// follow the token to the next page
	rec = do(t, s, http.MethodPost, "/grids/people", gridquery.Request{
		Draw:              4,
		Length:            1,
		Search:            &gridquery.Search{Value: "30"},
		Columns:           peopleColumns(),
		Order:             []gridquery.Order{{Column: 0, Dir: "desc"}},
		ContinuationToken: out.ContinuationToken,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Bob 30"}, names(decode(t, rec).Data))
}

func TestQueryGridGetJSON(t *testing.T) {
	s := newServer(t)
	q, err := json.Marshal(gridquery.Request{
		Draw:    1,
		Columns: peopleColumns(),
		Order:   []gridquery.Order{{Column: 1, Dir: "asc"}, {Column: 0, Dir: "asc"}},
	})
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/grids/people?q="+url.QueryEscape(string(q)), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Bob 30", "Eve <admin>", "Alice", "Dave", "Carol"}, names(decode(t, rec).Data))
	assert.Contains(t, rec.Body.String(), `"Eve <admin>"`)
}

func TestQueryGridGetForm(t *testing.T) {
	s := newServer(t)
	v := url.Values{}
	v.Set("draw", "9")
	v.Set("start", "0")
	v.Set("length", "10")
	v.Set("columns[0][data]", "Name")
	v.Set("columns[0][searchable]", "true")
	v.Set("columns[0][orderable]", "true")
	v.Set("columns[2][data]", "Status")
	v.Set("columns[2][searchable]", "true")
	v.Set("columns[2][search][value]", "retired")
	v.Set("order[0][column]", "0")
	v.Set("order[0][dir]", "asc")

	rec := do(t, s, http.MethodGet, "/grids/people?"+v.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, 9, out.Draw)
	assert.EqualValues(t, 2, out.RecordsFiltered)
	assert.Equal(t, []string{"Bob 30", "Dave"}, names(out.Data))
}

func TestQueryGridErrors(t *testing.T) {
	s := newServer(t)

	rec := do(t, s, http.MethodPost, "/grids/nope", gridquery.Request{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/grids/people", gridquery.Request{Draw: 2, ContinuationToken: "garbage"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, 2, out.Draw)
	assert.NotEmpty(t, out.Error)
	assert.NotNil(t, out.Data)

	req := httptest.NewRequest(http.MethodPost, "/grids/people", strings.NewReader(`{"draw":`))
	req.Header.Set(echo.HeaderContentType, "application/json")
	rec = httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/grids/people", gridquery.Request{Columns: make([]gridquery.Column, gridquery.MaxColumns+1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/grids/people?q=%7Bnot-json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/grids/broken", gridquery.Request{Draw: 5})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	out = decode(t, rec)
	assert.Equal(t, 5, out.Draw)
	assert.Contains(t, out.Error, rec.Header().Get(HeaderRequestID))
	assert.NotContains(t, out.Error, "db down")
}

func TestGridColumns(t *testing.T) {
	s := newServer(t)
	rec := do(t, s, http.MethodGet, "/grids/people/columns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []ColumnInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 4)
	assert.Equal(t, "ID", out[0].Data)
	assert.Equal(t, "numeric", out[0].Kind)
	assert.Equal(t, "text", out[1].Kind)
	assert.Equal(t, "enum", out[3].Kind)
	assert.Equal(t, []string{"Active", "Retired"}, out[3].Values)
}

func TestExplainGrid(t *testing.T) {
	s := newServer(t)
	rec := do(t, s, http.MethodPost, "/grids/people/explain", gridquery.Request{
		Search:  &gridquery.Search{Value: "30"},
		Columns: append(peopleColumns(), gridquery.Column{Data: "Missing", Searchable: true}),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out ExplainResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "people", out.Grid)
	assert.NotEmpty(t, out.ExplainSteps)
	assert.Contains(t, strings.Join(out.ExplainSteps, "\n"), "Missing")
}

func TestParseForm(t *testing.T) {
	v := url.Values{}
	v.Set("draw", "2")
	v.Set("search[value]", "ali")
	v.Set("search[regex]", "false")
	v.Set("columns[1][data]", "Age")
	v.Set("columns[1][orderable]", "true")
	v.Set("order[1][column]", "0")
	v.Set("order[1][dir]", "asc")
	v.Set("order[0][column]", "1")
	v.Set("order[0][dir]", "desc")

	req, err := ParseForm(v)
	require.NoError(t, err)
	assert.Equal(t, 2, req.Draw)
	require.NotNil(t, req.Search)
	assert.Equal(t, "ali", req.Search.Value)
	require.Len(t, req.Columns, 2)
	assert.False(t, req.Columns[0].Bound())
	assert.Equal(t, "Age", req.Columns[1].Data)
	assert.True(t, req.Columns[1].Orderable)
	assert.Equal(t, []gridquery.Order{{Column: 1, Dir: "desc"}, {Column: 0, Dir: "asc"}}, req.Order)

	_, err = ParseForm(url.Values{"start": {"x"}})
	assert.Error(t, err)
	_, err = ParseForm(url.Values{"columns[9999][data]": {"Age"}})
	assert.Error(t, err)
}
