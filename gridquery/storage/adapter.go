package storage

import (
	"context"
	"database/sql"
	"regexp"

	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/storage/sqlbuilder"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	Dialect() Dialect
	// DefaultKeyColumns are the stable tie-breakers appended to every
	// ordering. Nil defers to the primary key when the dialect is a KeyLister.
	DefaultKeyColumns() []string
}

// KeyLister is implemented by dialects that can read a table's primary key
type KeyLister interface {
	// PrimaryKey lists the primary key columns of table in key order, empty
	// when it has none
	PrimaryKey(ctx context.Context, db *sql.DB, table string) ([]string, error)
}

// Dialect renders the backend specific parts of a grid query
type Dialect interface {
	QuoteIdent(ident string) string
	// Contains tests ordinal containment of arg in the text column col
	Contains(col, arg string) string
	// ContainsText tests containment of arg in the textual form of col
	ContainsText(col, arg string) string
	// OrderTerm orders by col with absent values first ascending and last
	// descending, comparing text ordinally
	OrderTerm(col string, desc bool, kind record.Kind) string
	// Window renders the LIMIT/OFFSET clause; take < 0 means no limit
	Window(skip, take int) string
	// Columns lists the columns of table, empty when it does not exist
	Columns(ctx context.Context, db *sql.DB, table string) ([]ColumnInfo, error)
}

// ColumnInfo describes one table column
type ColumnInfo struct {
	Name     string
	DeclType string
	Nullable bool
}

// Builder interface for placeholder management
type Builder interface {
	Arg(v any) string
	// Value binds v converted to its driver type
	Value(v any) string
	Args() []any
	Len() int
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is a plain SQL identifier
func ValidIdent(name string) bool {
	return identRe.MatchString(name)
}
