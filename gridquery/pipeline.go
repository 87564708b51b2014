package gridquery

import (
	"reflect"

	"github.com/gridquery/gridquery/gridquery/source"
)

// Translate applies req to src: global search, column search, ordering and
// finally the start/length window. It returns the view before windowing,
// for counting filtered records, and the windowed view. Nothing executes.
func Translate[T any](src source.Queryable[T], req *Request, opts ...Option) (unpaginated, paginated source.Queryable[T], err error) {
	unpaginated, paginated, _, err = translate(src, req, buildOptions(opts))
	return unpaginated, paginated, err
}

// Explain describes the operations Translate would apply
func Explain[T any](src source.Queryable[T], req *Request, opts ...Option) (*Plan, error) {
	_, _, steps, err := translate(src, req, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Plan{ExplainSteps: steps}, nil
}

func translate[T any](src source.Queryable[T], req *Request, opts Options) (unpaginated, paginated source.Queryable[T], steps []string, err error) {
	if isNil(src) {
		return nil, nil, nil, InvalidArgument("source is nil")
	}
	if req == nil {
		return nil, nil, nil, InvalidArgument("request is nil")
	}

	t := newTranslator(src.RecordType(), opts)
	q := src
	if e := t.global(req); e != nil {
		q = q.Filter(e)
	}
	for _, e := range t.columns(req) {
		q = q.Filter(e)
	}
	q = applyKeys(q, t.keys(req))

	unpaginated = q
	skip, take := t.window(req)
	if skip > 0 {
		q = q.Skip(skip)
	}
	if take > 0 {
		q = q.Take(take)
	}
	return unpaginated, q, t.explainSteps, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
