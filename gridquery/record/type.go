package record

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Row is a dynamically typed record keyed by field name. Its shape is
// declared with NewRowType.
type Row map[string]any

var (
	rowGoType   = reflect.TypeFor[Row]()
	timeType    = reflect.TypeFor[time.Time]()
	valuerIface = reflect.TypeFor[driver.Valuer]()
)

type wrapMode int

const (
	wrapNone wrapMode = iota
	wrapPointer
	wrapOptional
	wrapSQLNull
)

// Field describes one field of a record type
type Field struct {
	Name     string       // declared name
	Column   string       // storage column name
	Kind     Kind         // match classification of GoType
	Nullable bool         // declared through a pointer, Optional or sql.Null* wrapper
	GoType   reflect.Type // declared type with any nullable wrapper removed
	Elem     *Type        // nested record type for struct-typed fields

	owner  reflect.Type
	index  []int
	wrap   wrapMode
	rowKey string
}

// Type is the resolved field set of a record type
type Type struct {
	name   string
	goType reflect.Type
	fields []*Field
	byName map[string][]*Field
}

// Name returns the type name
func (t *Type) Name() string { return t.name }

// GoType returns the Go type of records, record.Row for dynamic types
func (t *Type) GoType() reflect.Type { return t.goType }

// IsRow reports whether records of this type are record.Row values
func (t *Type) IsRow() bool { return t.goType == rowGoType }

// Fields returns the fields in declaration order
func (t *Type) Fields() []*Field { return t.fields }

// Field looks a field up by name, ignoring case. An exact-case match wins;
// a name that matches several fields only when case is ignored is ambiguous
// and reported as missing.
func (t *Type) Field(name string) (*Field, bool) {
	candidates := t.byName[strings.ToLower(name)]
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return candidates[0], true
	}
	for _, f := range candidates {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (t *Type) add(f *Field) {
	t.fields = append(t.fields, f)
	key := strings.ToLower(f.Name)
	t.byName[key] = append(t.byName[key], f)
}

func newType(name string, goType reflect.Type) *Type {
	return &Type{name: name, goType: goType, byName: make(map[string][]*Field)}
}

// RowField declares a field of a dynamic row type
type RowField struct {
	Name   string
	Column string // defaults to Name
	GoType reflect.Type
}

// NewRowType declares a record type whose records are Row values. Every row
// field is nullable: a missing key or nil value is an absent value.
func NewRowType(name string, fields []RowField) *Type {
	t := newType(name, rowGoType)
	for _, rf := range fields {
		inner, _ := unwrapType(rf.GoType)
		col := rf.Column
		if col == "" {
			col = rf.Name
		}
		t.add(&Field{
			Name:     rf.Name,
			Column:   col,
			Kind:     classify(inner),
			Nullable: true,
			GoType:   inner,
			owner:    rowGoType,
			rowKey:   rf.Name,
		})
	}
	return t
}

var typeCache sync.Map // reflect.Type -> *Type

// TypeOf describes the struct type T
func TypeOf[T any]() (*Type, error) {
	return Describe(reflect.TypeFor[T]())
}

// Describe resolves the exported fields of a struct type (or pointer to one).
// Results are cached per type. Column names come from the `db` struct tag,
// defaulting to the snake_case field name; `db:"-"` hides a field.
func Describe(t reflect.Type) (*Type, error) {
	if t == nil {
		return nil, fmt.Errorf("nil type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == rowGoType {
		return nil, fmt.Errorf("row types must be declared with NewRowType")
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("record type %s is not a struct", t)
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*Type), nil
	}

	building := make(map[reflect.Type]*Type)
	desc := describe(t, building)
	for gt, dt := range building {
		typeCache.LoadOrStore(gt, dt)
	}
	actual, _ := typeCache.Load(t)
	if actual != nil {
		return actual.(*Type), nil
	}
	return desc, nil
}

func describe(t reflect.Type, building map[reflect.Type]*Type) *Type {
	if dt, ok := building[t]; ok {
		return dt
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*Type)
	}
	dt := newType(t.Name(), t)
	building[t] = dt

	for _, sf := range reflect.VisibleFields(t) {
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		if top, ok := t.FieldByName(sf.Name); !ok || !slices.Equal(top.Index, sf.Index) {
			continue // shadowed by a shallower field
		}
		col := columnName(sf)
		if col == "-" {
			continue
		}
		inner, wrap := unwrapType(sf.Type)
		f := &Field{
			Name:     sf.Name,
			Column:   col,
			Kind:     classify(inner),
			Nullable: wrap != wrapNone,
			GoType:   inner,
			owner:    t,
			index:    sf.Index,
			wrap:     wrap,
		}
		if f.Kind == KindOther && isRecordStruct(inner) {
			f.Elem = describe(inner, building)
		}
		dt.add(f)
	}
	return dt
}

func columnName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("db"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" {
			return name
		}
	}
	return snakeCase(sf.Name)
}

// unwrapType removes one nullable wrapper from t
func unwrapType(t reflect.Type) (reflect.Type, wrapMode) {
	if t == nil {
		return nil, wrapNone
	}
	if t.Kind() == reflect.Pointer {
		return t.Elem(), wrapPointer
	}
	if t.Implements(optionalIface) {
		return reflect.Zero(t).Interface().(optional).elemType(), wrapOptional
	}
	if _, value, ok := sqlNullShape(t); ok {
		return t.Field(value).Type, wrapSQLNull
	}
	return t, wrapNone
}

// sqlNullShape matches database/sql style nullable structs: a driver.Valuer
// with a `Valid bool` field and exactly one other field.
func sqlNullShape(t reflect.Type) (valid, value int, ok bool) {
	if t.Kind() != reflect.Struct || t.NumField() != 2 || !t.Implements(valuerIface) {
		return 0, 0, false
	}
	for i := 0; i < 2; i++ {
		f := t.Field(i)
		if f.Name == "Valid" && f.Type.Kind() == reflect.Bool {
			return i, 1 - i, true
		}
	}
	return 0, 0, false
}

func classify(t reflect.Type) Kind {
	switch {
	case t == nil:
		return KindOther
	case IsEnum(t):
		return KindEnum
	case t.Kind() == reflect.String:
		return KindText
	case IsNumeric(t):
		return KindNumeric
	default:
		return KindOther
	}
}

func isRecordStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType || t == decimalType {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// settle strips interfaces, pointers and nullable wrappers from v. It reports
// false when v is absent.
func settle(v reflect.Value) (reflect.Value, bool) {
	for {
		if !v.IsValid() {
			return v, false
		}
		switch v.Kind() {
		case reflect.Interface, reflect.Pointer:
			if v.IsNil() {
				return v, false
			}
			v = v.Elem()
			continue
		}
		t := v.Type()
		if t.Implements(optionalIface) {
			inner, ok := v.Interface().(optional).unwrap()
			if !ok {
				return v, false
			}
			v = reflect.ValueOf(inner)
			continue
		}
		if valid, value, ok := sqlNullShape(t); ok {
			if !v.Field(valid).Bool() {
				return v, false
			}
			v = v.Field(value)
			continue
		}
		return v, true
	}
}

// value reads f from a settled record value
func (f *Field) value(rec reflect.Value) (reflect.Value, bool) {
	if f.rowKey != "" {
		if rec.Kind() != reflect.Map || rec.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		mv := rec.MapIndex(reflect.ValueOf(f.rowKey).Convert(rec.Type().Key()))
		return settle(mv)
	}
	if rec.Kind() != reflect.Struct || rec.Type() != f.owner {
		return reflect.Value{}, false
	}
	fv, err := rec.FieldByIndexErr(f.index)
	if err != nil {
		return reflect.Value{}, false
	}
	return settle(fv)
}

func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
