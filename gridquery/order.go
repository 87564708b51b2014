package gridquery

import "github.com/gridquery/gridquery/gridquery/source"

// ApplyOrdering orders src by the request's valid order entries, the first
// as primary key and the rest as tie breakers. Invalid entries are skipped;
// with none left src is returned unchanged.
func ApplyOrdering[T any](src source.Queryable[T], req *Request) source.Queryable[T] {
	if src == nil || req == nil {
		return src
	}
	return applyKeys(src, newTranslator(src.RecordType(), DefaultOptions()).keys(req))
}

func applyKeys[T any](src source.Queryable[T], keys []source.SortKey) source.Queryable[T] {
	for i, k := range keys {
		if i == 0 {
			src = src.OrderBy(k.Field, k.Dir)
		} else {
			src = src.ThenBy(k.Field, k.Dir)
		}
	}
	return src
}
