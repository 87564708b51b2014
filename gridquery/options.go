package gridquery

import "fmt"

// ColumnSearchPolicy decides which columns accept a per-column search term
type ColumnSearchPolicy string

const (
	// ColumnSearchAlways honors a column's own term regardless of its
	// searchable flag, which then governs only the global search
	ColumnSearchAlways ColumnSearchPolicy = "always"
	// ColumnSearchSearchableOnly requires the searchable flag for column terms too
	ColumnSearchSearchableOnly ColumnSearchPolicy = "searchable"
)

// ParseColumnSearchPolicy parses a policy name; empty means the default
func ParseColumnSearchPolicy(s string) (ColumnSearchPolicy, error) {
	switch ColumnSearchPolicy(s) {
	case "", ColumnSearchAlways:
		return ColumnSearchAlways, nil
	case ColumnSearchSearchableOnly:
		return ColumnSearchSearchableOnly, nil
	}
	return "", fmt.Errorf("unknown column search policy %q", s)
}

// Options configures translation
type Options struct {
	ColumnSearch ColumnSearchPolicy
}

// DefaultOptions returns the default translation options
func DefaultOptions() Options {
	return Options{ColumnSearch: ColumnSearchAlways}
}

type Option func(*Options)

// WithColumnSearch sets the per-column search policy
func WithColumnSearch(p ColumnSearchPolicy) Option {
	return func(o *Options) { o.ColumnSearch = p }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
