package storage

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/gridquery/gridquery/gridquery/record"
)

// Introspect describes table as a record.Row type. Declared column types
// map to Go types the way SQLite assigns column affinity; unknown types
// classify as other and are matched on their text.
func Introspect(ctx context.Context, db *sql.DB, adapter Adapter, table string) (*record.Type, error) {
	if !ValidIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	cols, err := adapter.Dialect().Columns(ctx, db, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}
	fields := make([]record.RowField, len(cols))
	for i, c := range cols {
		fields[i] = record.RowField{Name: c.Name, Column: c.Name, GoType: GoTypeFor(c.DeclType)}
	}
	return record.NewRowType(table, fields), nil
}

// GoTypeFor maps a declared SQL column type to the Go type its values
// normalize to, nil when there is none
func GoTypeFor(decl string) reflect.Type {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "INTERVAL"), strings.Contains(d, "POINT"):
		return nil
	case strings.Contains(d, "BOOL"):
		return reflect.TypeFor[bool]()
	case strings.Contains(d, "INT"):
		return reflect.TypeFor[int64]()
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return reflect.TypeFor[string]()
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return reflect.TypeFor[float64]()
	case strings.Contains(d, "DEC"), strings.Contains(d, "NUMERIC"):
		return decimalType
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return timeType
	}
	return nil
}
