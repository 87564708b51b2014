package server

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/storage"
)

type GridInfo struct {
	Name   string `json:"name"`
	Record string `json:"record"`
}

type ColumnInfo struct {
	Data string `json:"data"`
	Kind string `json:"kind"`
	// Values lists the members of an enumeration
	Values []string `json:"values,omitempty"`
}

type ExplainResponse struct {
	Grid         string   `json:"grid"`
	ExplainSteps []string `json:"explainSteps"`
}

func (s *HTTPServer) ListGrids(c *CustomContext) error {
	out := make([]GridInfo, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, GridInfo{Name: name, Record: s.grids[name].RecordType().Name()})
	}
	return c.JSON(http.StatusOK, out)
}

// QueryGrid answers a grid request. POST takes the request as JSON; GET takes
// it as JSON in the q parameter or as DataTables form parameters.
func (s *HTTPServer) QueryGrid(c *CustomContext) error {
	g, ok := s.grids[c.Param("name")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown grid")
	}
	req, err := s.bindGridRequest(c)
	if err != nil {
		return c.GridError(drawOf(req), err)
	}
	resp, err := g.Execute(c.Request().Context(), req)
	if err != nil {
		return c.GridError(req.Draw, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) ExplainGrid(c *CustomContext) error {
	g, ok := s.grids[c.Param("name")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown grid")
	}
	req, err := s.bindGridRequest(c)
	if err != nil {
		return c.GridError(drawOf(req), err)
	}
	plan, err := g.Explain(req)
	if err != nil {
		return c.GridError(req.Draw, err)
	}
	return c.JSON(http.StatusOK, ExplainResponse{Grid: g.Name(), ExplainSteps: plan.ExplainSteps})
}

func (s *HTTPServer) GridColumns(c *CustomContext) error {
	g, ok := s.grids[c.Param("name")]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown grid")
	}
	return c.JSON(http.StatusOK, DescribeColumns(g.RecordType()))
}

// DescribeColumns lists the field paths of t that a grid column can bind
func DescribeColumns(t *record.Type) []ColumnInfo {
	leaves := t.Leaves(storage.DefaultMaxDepth)
	out := make([]ColumnInfo, 0, len(leaves))
	for _, acc := range leaves {
		leaf := acc.Leaf()
		info := ColumnInfo{Data: acc.Path(), Kind: leaf.Kind.String()}
		if leaf.Kind == record.KindEnum {
			info.Values = record.EnumNames(leaf.GoType)
		}
		out = append(out, info)
	}
	return out
}

func (s *HTTPServer) bindGridRequest(c *CustomContext) (*gridquery.Request, error) {
	req := new(gridquery.Request)
	switch {
	case c.Request().Method == http.MethodPost:
		if err := ValidateRequest(c, req); err != nil {
			return req, gridquery.Wrap(gridquery.ErrInvalidArgument, "bind request", err)
		}
		return req, nil
	case c.QueryParam("q") != "":
		if err := json.Unmarshal([]byte(c.QueryParam("q")), req); err != nil {
			return req, gridquery.Wrap(gridquery.ErrInvalidArgument, "decode q", err)
		}
	default:
		parsed, err := ParseForm(c.QueryParams())
		if err != nil {
			return parsed, gridquery.Wrap(gridquery.ErrInvalidArgument, "parse form", err)
		}
		req = parsed
	}
	if err := c.Validate(req); err != nil {
		return req, gridquery.Wrap(gridquery.ErrInvalidArgument, "validate request", err)
	}
	return req, nil
}

func drawOf(req *gridquery.Request) int {
	if req == nil {
		return 0
	}
	return req.Draw
}
