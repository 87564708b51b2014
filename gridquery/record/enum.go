package record

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

type enumInfo struct {
	byName map[string]any
	names  []string
}

var enums sync.Map // reflect.Type -> *enumInfo

// RegisterEnum declares T as an enumeration with the given named members.
// Fields of type T (or *T, Optional[T]) then classify as KindEnum and search
// text is parsed against the member names, ignoring case.
// Registering the same type again replaces its members.
func RegisterEnum[T comparable](members map[string]T) {
	info := &enumInfo{byName: make(map[string]any, len(members))}
	for name, v := range members {
		info.byName[strings.ToLower(name)] = v
		info.names = append(info.names, name)
	}
	sort.Strings(info.names)
	enums.Store(reflect.TypeFor[T](), info)
}

// IsEnum reports whether t was registered with RegisterEnum
func IsEnum(t reflect.Type) bool {
	if t == nil {
		return false
	}
	_, ok := enums.Load(t)
	return ok
}

// EnumNames returns the registered member names of t in sorted order
func EnumNames(t reflect.Type) []string {
	v, ok := enums.Load(t)
	if !ok {
		return nil
	}
	return append([]string(nil), v.(*enumInfo).names...)
}

// ParseEnum returns the member of t named raw, ignoring case and surrounding space
func ParseEnum(t reflect.Type, raw string) (any, error) {
	v, ok := enums.Load(t)
	if !ok {
		return nil, fmt.Errorf("type %s is not a registered enum", t)
	}
	member, ok := v.(*enumInfo).byName[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return nil, fmt.Errorf("%q is not a member of %s", raw, t)
	}
	return member, nil
}
