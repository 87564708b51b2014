package record

import (
	"reflect"
	"strings"
)

// Accessor is a resolved chain of field accesses for one dotted path
type Accessor struct {
	path  string
	chain []*Field
}

// Resolve resolves a dotted path such as "User.Name" against t. Segments
// match field names ignoring case and each segment resolves against the
// declared type of the previous one. A blank path, an empty segment or a
// segment with no matching field leaves the path unresolved.
func Resolve(t *Type, path string) (acc *Accessor, ok bool) {
	defer func() {
		if recover() != nil {
			acc, ok = nil, false
		}
	}()

	if t == nil || strings.TrimSpace(path) == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	chain := make([]*Field, 0, len(segments))
	cur := t
	for _, seg := range segments {
		if cur == nil || seg == "" {
			return nil, false
		}
		f, found := cur.Field(seg)
		if !found {
			return nil, false
		}
		chain = append(chain, f)
		cur = f.Elem
	}
	return newAccessor(chain), true
}

func newAccessor(chain []*Field) *Accessor {
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.Name
	}
	return &Accessor{path: strings.Join(names, "."), chain: chain}
}

// Path returns the resolved path using declared field names
func (a *Accessor) Path() string { return a.path }

// Chain returns the field chain, outermost first
func (a *Accessor) Chain() []*Field { return a.chain }

// Leaf returns the final field
func (a *Accessor) Leaf() *Field { return a.chain[len(a.chain)-1] }

// Column returns the storage column of the path: the chain's column names
// joined by "_".
func (a *Accessor) Column() string {
	if len(a.chain) == 1 {
		return a.chain[0].Column
	}
	cols := make([]string, len(a.chain))
	for i, f := range a.chain {
		cols[i] = f.Column
	}
	return strings.Join(cols, "_")
}

// Get reads the value at the path from rec. It reports false when any link
// of the chain is absent (nil pointer, invalid Optional, missing row key).
// Present values are returned unwrapped.
func (a *Accessor) Get(rec any) (any, bool) {
	v, ok := settle(reflect.ValueOf(rec))
	if !ok {
		return nil, false
	}
	for _, f := range a.chain {
		v, ok = f.value(v)
		if !ok {
			return nil, false
		}
	}
	if !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}

// Dest returns a pointer to the leaf field storage inside the addressable
// struct value root, allocating nil intermediate pointers on the way. It
// reports false for row types and for chains through Optional or sql.Null*
// wrapped structs.
func (a *Accessor) Dest(root reflect.Value) (any, bool) {
	cur := root
	for i, f := range a.chain {
		if f.rowKey != "" || cur.Kind() != reflect.Struct || cur.Type() != f.owner {
			return nil, false
		}
		fv := cur
		for _, idx := range f.index {
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					fv.Set(reflect.New(fv.Type().Elem()))
				}
				fv = fv.Elem()
			}
			fv = fv.Field(idx)
		}
		if i == len(a.chain)-1 {
			if !fv.CanAddr() {
				return nil, false
			}
			return fv.Addr().Interface(), true
		}
		switch f.wrap {
		case wrapNone:
		case wrapPointer:
			if fv.IsNil() {
				fv.Set(reflect.New(fv.Type().Elem()))
			}
			fv = fv.Elem()
		default:
			return nil, false
		}
		cur = fv
	}
	return nil, false
}

// DestType returns the declared Go type of the leaf field, including any
// nullable wrapper. It is nil for row types.
func (a *Accessor) DestType() reflect.Type {
	leaf := a.Leaf()
	if leaf.rowKey != "" {
		return nil
	}
	return leaf.owner.FieldByIndex(leaf.index).Type
}

// Leaves returns accessors for every scalar field reachable from t, flattening
// nested struct fields up to maxDepth levels. Nested structs behind Optional
// or sql.Null* wrappers are skipped.
func (t *Type) Leaves(maxDepth int) []*Accessor {
	var out []*Accessor
	t.leaves(nil, maxDepth, &out)
	return out
}

func (t *Type) leaves(prefix []*Field, depth int, out *[]*Accessor) {
	for _, f := range t.fields {
		chain := append(append([]*Field(nil), prefix...), f)
		if f.Elem == nil {
			*out = append(*out, newAccessor(chain))
			continue
		}
		if depth <= 1 || (f.wrap != wrapNone && f.wrap != wrapPointer) {
			continue
		}
		f.Elem.leaves(chain, depth-1, out)
	}
}

// Restrict returns a copy of t holding only the fields on the paths of keep,
// which must have been resolved against t. Paths outside keep no longer
// resolve against the copy. Records of the copy are the records of t.
func (t *Type) Restrict(keep []*Accessor) *Type {
	r := newType(t.name, t.goType)
	for _, f := range t.fields {
		var direct bool
		var nested []*Accessor
		for _, a := range keep {
			if a.chain[0] != f {
				continue
			}
			if len(a.chain) == 1 {
				direct = true
			} else {
				nested = append(nested, newAccessor(a.chain[1:]))
			}
		}
		if !direct && len(nested) == 0 {
			continue
		}
		c := *f
		if len(nested) > 0 && f.Elem != nil {
			c.Elem = f.Elem.Restrict(nested)
		}
		r.add(&c)
	}
	return r
}
