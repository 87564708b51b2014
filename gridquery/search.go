package gridquery

import "github.com/gridquery/gridquery/gridquery/source"

// ApplyGlobalSearch filters src by the request's global search term, OR-ing
// the matches of every searchable column. Columns that do not resolve or
// whose type cannot represent the term are left out; when no column
// contributes, src is returned unchanged.
func ApplyGlobalSearch[T any](src source.Queryable[T], req *Request) source.Queryable[T] {
	if src == nil || req == nil {
		return src
	}
	if e := newTranslator(src.RecordType(), DefaultOptions()).global(req); e != nil {
		return src.Filter(e)
	}
	return src
}

// ApplyColumnSearch applies one filter per column carrying its own search
// term, so column terms intersect
func ApplyColumnSearch[T any](src source.Queryable[T], req *Request, opts ...Option) source.Queryable[T] {
	if src == nil || req == nil {
		return src
	}
	for _, e := range newTranslator(src.RecordType(), buildOptions(opts)).columns(req) {
		src = src.Filter(e)
	}
	return src
}
