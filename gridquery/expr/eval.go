package expr

import (
	"strings"

	"github.com/gridquery/gridquery/gridquery/record"
)

// Eval evaluates e against rec. A nil expression matches every record.
// Absent values never match a predicate.
func Eval(e Expr, rec any) bool {
	switch x := e.(type) {
	case nil:
		return true
	case And:
		return Eval(x.Left, rec) && Eval(x.Right, rec)
	case Or:
		return Eval(x.Left, rec) || Eval(x.Right, rec)
	case Pred:
		return evalPredicate(x.Predicate, rec)
	default:
		return false
	}
}

func evalPredicate(pred Predicate, rec any) bool {
	switch p := pred.(type) {
	case Contains:
		v, ok := p.Field.Get(rec)
		if !ok {
			return false
		}
		s, ok := record.Text(v)
		return ok && strings.Contains(s, p.Substring)
	case ContainsFormatted:
		v, ok := p.Field.Get(rec)
		return ok && strings.Contains(record.Format(v), p.Substring)
	case Equals:
		v, ok := p.Field.Get(rec)
		return ok && record.Equal(v, p.Value)
	default:
		return false
	}
}
