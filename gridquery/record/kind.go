package record

// Kind classifies a field for search matching
type Kind int

const (
	KindOther   Kind = iota // matched on its formatted text
	KindText                // string-like, matched by ordinal containment
	KindEnum                // registered enumeration, matched by member name
	KindNumeric             // integer, floating point or decimal
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEnum:
		return "enum"
	case KindNumeric:
		return "numeric"
	default:
		return "other"
	}
}
