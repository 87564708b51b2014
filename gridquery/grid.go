package gridquery

import (
	"context"

	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/source"
)

// Runner executes grid requests against one record collection
type Runner interface {
	Name() string
	RecordType() *record.Type
	Execute(ctx context.Context, req *Request) (*Response, error)
	Explain(req *Request) (*Plan, error)
}

// Grid binds a base source to translation options
type Grid[T any] struct {
	name string
	base source.Queryable[T]
	opts Options
}

var _ Runner = (*Grid[struct{}])(nil)

// NewGrid returns a grid named name over base
func NewGrid[T any](name string, base source.Queryable[T], opts ...Option) (*Grid[T], error) {
	if isNil(base) {
		return nil, InvalidArgument("source is nil")
	}
	o := buildOptions(opts)
	if _, err := ParseColumnSearchPolicy(string(o.ColumnSearch)); err != nil {
		return nil, Wrap(ErrInvalidArgument, "options", err)
	}
	return &Grid[T]{name: name, base: base, opts: o}, nil
}

func (g *Grid[T]) Name() string { return g.name }

func (g *Grid[T]) RecordType() *record.Type { return g.base.RecordType() }

// Execute runs req. RecordsTotal counts the base source, RecordsFiltered the
// searched view and Data holds the requested window. When a positive length
// leaves filtered records after the window, the response carries a token
// for the next page.
func (g *Grid[T]) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, InvalidArgument("request is nil")
	}
	r := *req
	if r.ContinuationToken != "" {
		start, err := DecodeToken(&r, r.ContinuationToken)
		if err != nil {
			return nil, err
		}
		r.Start = start
	}

	unpaginated, paginated, _, err := translate(g.base, &r, g.opts)
	if err != nil {
		return nil, err
	}

	total, err := g.base.Count(ctx)
	if err != nil {
		return nil, Wrap(ErrSource, "count records", err)
	}
	filtered, err := unpaginated.Count(ctx)
	if err != nil {
		return nil, Wrap(ErrSource, "count filtered records", err)
	}
	items, err := paginated.List(ctx)
	if err != nil {
		return nil, Wrap(ErrSource, "list records", err)
	}
	if items == nil {
		items = []T{}
	}

	resp := &Response{
		Draw:            r.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            items,
	}
	next := max(r.Start, 0) + len(items)
	if r.Length > 0 && len(items) > 0 && int64(next) < filtered {
		tok, err := EncodeToken(&r, next)
		if err != nil {
			return nil, err
		}
		resp.ContinuationToken = tok
	}
	return resp, nil
}

// Explain describes the operations req translates to
func (g *Grid[T]) Explain(req *Request) (*Plan, error) {
	_, _, steps, err := translate(g.base, req, g.opts)
	if err != nil {
		return nil, err
	}
	return &Plan{ExplainSteps: steps}, nil
}
