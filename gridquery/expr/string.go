package expr

import (
	"fmt"
	"strconv"
)

// String renders e for explain output, e.g. (Name ~ "30" OR Age = 30)
func String(e Expr) string {
	switch x := e.(type) {
	case nil:
		return "TRUE"
	case And:
		return fmt.Sprintf("(%s AND %s)", String(x.Left), String(x.Right))
	case Or:
		return fmt.Sprintf("(%s OR %s)", String(x.Left), String(x.Right))
	case Pred:
		return predicateString(x.Predicate)
	default:
		return "?"
	}
}

func predicateString(pred Predicate) string {
	switch p := pred.(type) {
	case Contains:
		return fmt.Sprintf("%s ~ %s", p.Field.Path(), strconv.Quote(p.Substring))
	case ContainsFormatted:
		return fmt.Sprintf("text(%s) ~ %s", p.Field.Path(), strconv.Quote(p.Substring))
	case Equals:
		if s, ok := p.Value.(string); ok {
			return fmt.Sprintf("%s = %s", p.Field.Path(), strconv.Quote(s))
		}
		return fmt.Sprintf("%s = %v", p.Field.Path(), p.Value)
	default:
		return "?"
	}
}
