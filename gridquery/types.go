package gridquery

import (
	"strings"

	"github.com/gridquery/gridquery/gridquery/source"
)

// Request is a data grid request. Columns order defines the index space
// referenced by Order.Column.
type Request struct {
	Draw              int      `json:"draw"`
	Start             int      `json:"start"`
	Length            int      `json:"length"` // <= 0 means no limit
	ContinuationToken string   `json:"continuationToken,omitempty"`
	Search            *Search  `json:"search,omitempty"`
	Order             []Order  `json:"order,omitempty"`
	Columns           []Column `json:"columns,omitempty" validate:"max=256,dive"`
}

// Column binds a grid column to a record field path
type Column struct {
	Data       string  `json:"data"` // dotted field path, empty when unbound
	Name       string  `json:"name"`
	Searchable bool    `json:"searchable"`
	Orderable  bool    `json:"orderable"`
	Search     *Search `json:"search,omitempty"`
}

// Bound reports whether the column names a field path
func (c Column) Bound() bool { return strings.TrimSpace(c.Data) != "" }

// Search is a search term. Regex is carried but never evaluated.
type Search struct {
	Value string `json:"value"`
	Regex bool   `json:"regex"`
}

// Term returns the search text, false when the search is absent or blank
func (s *Search) Term() (string, bool) {
	if s == nil || strings.TrimSpace(s.Value) == "" {
		return "", false
	}
	return s.Value, true
}

// Order references a column by index
type Order struct {
	Column int    `json:"column"`
	Dir    string `json:"dir"`
	Name   string `json:"name,omitempty"`
}

// Direction is ascending only when Dir is "asc", ignoring case
func (o Order) Direction() source.Direction { return source.ParseDirection(o.Dir) }

// Response is the result of one grid request
type Response struct {
	Draw              int    `json:"draw"`
	RecordsTotal      int64  `json:"recordsTotal"`
	RecordsFiltered   int64  `json:"recordsFiltered"`
	Data              any    `json:"data"`
	Error             string `json:"error,omitempty"`
	ContinuationToken string `json:"continuationToken,omitempty"`
}

// Plan lists the operations a request translates to
type Plan struct {
	ExplainSteps []string `json:"explainSteps"`
}
