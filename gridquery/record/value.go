package record

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders a field value as text for formatted containment
func Format(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Text returns the string content of a string-kinded value
func Text(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

// Equal reports whether two field values are equal. Numbers compare by value
// across integer, floating point and decimal representations.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if IsNumeric(ra.Type()) && IsNumeric(rb.Type()) {
		return compareNumbers(ra, rb) == 0
	}
	if ra.Type() != rb.Type() || !ra.Type().Comparable() {
		return false
	}
	return a == b
}

// Compare orders two field values. Absent values (nil) sort before anything
// else; strings compare ordinally; values of unrelated types fall back to
// comparing their formatted text.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	ta, tb := ra.Type(), rb.Type()

	if IsNumeric(ta) && IsNumeric(tb) {
		return compareNumbers(ra, rb)
	}
	if ta == tb {
		switch ta.Kind() {
		case reflect.String:
			return strings.Compare(ra.String(), rb.String())
		case reflect.Bool:
			x, y := ra.Bool(), rb.Bool()
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
		if c, ok := compareMethod(ra, rb); ok {
			return c
		}
	}
	return strings.Compare(Format(a), Format(b))
}

// compareMethod uses a `Compare(T) int` method when the type declares one
// (time.Time does).
func compareMethod(a, b reflect.Value) (int, bool) {
	m := a.MethodByName("Compare")
	if !m.IsValid() {
		return 0, false
	}
	mt := m.Type()
	if mt.NumIn() != 1 || mt.In(0) != b.Type() || mt.NumOut() != 1 || mt.Out(0).Kind() != reflect.Int {
		return 0, false
	}
	return int(m.Call([]reflect.Value{b})[0].Int()), true
}

func compareNumbers(a, b reflect.Value) int {
	if a.Type() == decimalType || b.Type() == decimalType {
		return toDecimal(a).Cmp(toDecimal(b))
	}
	ka, kb := numberClass(a.Kind()), numberClass(b.Kind())
	switch {
	case ka == classInt && kb == classInt:
		return cmp.Compare(a.Int(), b.Int())
	case ka == classUint && kb == classUint:
		return cmp.Compare(a.Uint(), b.Uint())
	case ka == classInt && kb == classUint:
		if a.Int() < 0 {
			return -1
		}
		return cmp.Compare(uint64(a.Int()), b.Uint())
	case ka == classUint && kb == classInt:
		if b.Int() < 0 {
			return 1
		}
		return cmp.Compare(a.Uint(), uint64(b.Int()))
	}
	return cmp.Compare(toFloat(a), toFloat(b))
}

type numClass int

const (
	classInt numClass = iota
	classUint
	classFloat
)

func numberClass(k reflect.Kind) numClass {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return classInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return classUint
	default:
		return classFloat
	}
}

func toFloat(v reflect.Value) float64 {
	switch numberClass(v.Kind()) {
	case classInt:
		return float64(v.Int())
	case classUint:
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func toDecimal(v reflect.Value) decimal.Decimal {
	if v.Type() == decimalType {
		return v.Interface().(decimal.Decimal)
	}
	switch numberClass(v.Kind()) {
	case classInt:
		return decimal.NewFromInt(v.Int())
	case classUint:
		return decimal.NewFromUint64(v.Uint())
	default:
		return decimal.NewFromFloat(v.Float())
	}
}
