package sqlbuilder

import (
	"reflect"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota
	PlaceholderDollar
)

// Builder collects query arguments and hands out placeholders for them in
// the style of the target database
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0)}
}

func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	switch b.Style {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(len(b.args))
	default:
		return "?"
	}
}

// Value binds a grid value, converted by DriverValue
func (b *Builder) Value(v any) string { return b.Arg(DriverValue(v)) }

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }

var (
	decimalType = reflect.TypeFor[decimal.Decimal]()
	timeType    = reflect.TypeFor[time.Time]()
)

// DriverValue converts named numeric and string types to their driver types.
// Enumerations bind their underlying value, decimals their canonical text and
// float32 values the float64 of their shortest decimal form.
func DriverValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Type() {
	case decimalType:
		return v.(decimal.Decimal).String()
	case timeType:
		return v
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return decimal.NewFromUint64(u).String()
		}
		return int64(u)
	case reflect.Float32:
		// widening directly turns 0.1 into 0.10000000149011612
		f, _ := strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
		return f
	case reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}
