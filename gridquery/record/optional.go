package record

import (
	"database/sql"
	"encoding/json"
	"reflect"
)

// Optional holds a value that may be absent. Fields declared as Optional[T]
// are nullable and classify by T.
type Optional[T any] struct {
	V     T
	Valid bool
}

// Some returns a present Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{V: v, Valid: true}
}

// None returns an absent Optional
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// HasValue reports whether the value is present
func (o Optional[T]) HasValue() bool { return o.Valid }

// Value returns the wrapped value, the zero value when absent
func (o Optional[T]) Value() T { return o.V }

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.V)
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Scan implements sql.Scanner
func (o *Optional[T]) Scan(src any) error {
	var n sql.Null[T]
	if err := n.Scan(src); err != nil {
		return err
	}
	*o = Optional[T]{V: n.V, Valid: n.Valid}
	return nil
}

func (o Optional[T]) unwrap() (any, bool) {
	if !o.Valid {
		return nil, false
	}
	return o.V, true
}

func (Optional[T]) elemType() reflect.Type {
	return reflect.TypeFor[T]()
}

// optional is satisfied by every Optional[T]
type optional interface {
	unwrap() (any, bool)
	elemType() reflect.Type
}

var optionalIface = reflect.TypeFor[optional]()
