package record

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeFor[decimal.Decimal]()

// IsNumeric reports whether t is an integer, floating point or decimal type
func IsNumeric(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t == decimalType {
		return true
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// ParseNumber converts raw to a value of exactly type t. Values that do not
// fit t (fractions for integers, out of range, garbage) are an error.
func ParseNumber(t reflect.Type, raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if t == decimalType {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return nil, err
		}
		v.SetFloat(f)
	default:
		return nil, fmt.Errorf("type %s is not numeric", t)
	}
	return v.Interface(), nil
}
