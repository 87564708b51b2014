package storage

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridquery/gridquery/gridquery/record"
)

var (
	decimalType = reflect.TypeFor[decimal.Decimal]()
	timeType    = reflect.TypeFor[time.Time]()
)

// scanStruct scans one row into a new T. Columns of nested fields are read
// into temporaries first so an all-NULL nested struct stays nil.
func (t *Table[T]) scanStruct(rows *sql.Rows, n int) (T, error) {
	var item T
	root := reflect.ValueOf(&item).Elem()
	dests := make([]any, n)
	var deferred []func()

	for i, acc := range t.cols {
		if len(acc.Chain()) == 1 {
			d, ok := acc.Dest(root)
			if !ok {
				return item, fmt.Errorf("field %s cannot be scanned", acc.Path())
			}
			dests[i] = d
			continue
		}
		tmp := reflect.New(reflect.PointerTo(acc.DestType()))
		dests[i] = tmp.Interface()
		deferred = append(deferred, func() {
			v := tmp.Elem()
			if v.IsNil() {
				return
			}
			if d, ok := acc.Dest(root); ok {
				reflect.ValueOf(d).Elem().Set(v.Elem())
			}
		})
	}
	for i := len(t.cols); i < n; i++ {
		dests[i] = new(any)
	}

	if err := rows.Scan(dests...); err != nil {
		return item, err
	}
	for _, fn := range deferred {
		fn()
	}
	return item, nil
}

// scanRow scans one row into a record.Row, converting driver values to the
// declared Go type of each column
func (t *Table[T]) scanRow(rows *sql.Rows, n int) (T, error) {
	var zero T
	vals := make([]any, n)
	dests := make([]any, n)
	for i := range vals {
		dests[i] = &vals[i]
	}
	if err := rows.Scan(dests...); err != nil {
		return zero, err
	}
	row := make(record.Row, len(t.cols))
	for i, acc := range t.cols {
		leaf := acc.Leaf()
		row[leaf.Name] = normalize(vals[i], leaf.GoType)
	}
	out, ok := any(row).(T)
	if !ok {
		return zero, fmt.Errorf("record type is not record.Row")
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// normalize converts a driver value to t where a lossless conversion exists
func normalize(v any, t reflect.Type) any {
	if v == nil || t == nil {
		return v
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return v
	}

	switch {
	case t == decimalType:
		switch x := v.(type) {
		case string:
			if d, err := decimal.NewFromString(strings.TrimSpace(x)); err == nil {
				return d
			}
		case int64:
			return decimal.NewFromInt(x)
		case float64:
			return decimal.NewFromFloat(x)
		}
	case t == timeType:
		if s, ok := v.(string); ok {
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts
				}
			}
		}
	case t.Kind() == reflect.Bool:
		switch x := v.(type) {
		case int64:
			return x != 0
		case string:
			return x == "1" || strings.EqualFold(x, "true") || strings.EqualFold(x, "t")
		}
	case record.IsNumeric(t):
		if s, ok := v.(string); ok {
			if n, err := record.ParseNumber(t, s); err == nil {
				return n
			}
			return v
		}
		if record.IsNumeric(rv.Type()) && rv.CanConvert(t) {
			return rv.Convert(t).Interface()
		}
	case t.Kind() == reflect.String:
		if rv.Kind() == reflect.String {
			return rv.Convert(t).Interface()
		}
	}
	return v
}
