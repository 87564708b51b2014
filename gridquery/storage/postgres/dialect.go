package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/storage"
)

// Dialect renders PostgreSQL SQL. NULL placement and text collation are
// spelled out so orderings match the in-memory comparison.
type Dialect struct{}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) QuoteIdent(ident string) string { return quoteIdent(ident) }

func (Dialect) Contains(col, arg string) string {
	return fmt.Sprintf("strpos(%s, %s) > 0", col, arg)
}

func (Dialect) ContainsText(col, arg string) string {
	return fmt.Sprintf("strpos(CAST(%s AS TEXT), %s) > 0", col, arg)
}

func (Dialect) OrderTerm(col string, desc bool, kind record.Kind) string {
	if kind == record.KindText {
		col += ` COLLATE "C"`
	}
	if desc {
		return col + " DESC NULLS LAST"
	}
	return col + " ASC NULLS FIRST"
}

func (Dialect) Window(skip, take int) string {
	var parts []string
	if take >= 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", take))
	}
	if skip > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", skip))
	}
	return strings.Join(parts, " ")
}

const columnsSQL = `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`

func (Dialect) Columns(ctx context.Context, db *sql.DB, table string) ([]storage.ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, columnsSQL, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	for rows.Next() {
		var name, decl, nullable string
		if err := rows.Scan(&name, &decl, &nullable); err != nil {
			return nil, err
		}
		out = append(out, storage.ColumnInfo{Name: name, DeclType: decl, Nullable: nullable == "YES"})
	}
	return out, rows.Err()
}

const primaryKeySQL = `SELECT kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name
 AND kcu.constraint_schema = tc.constraint_schema
 AND kcu.table_name = tc.table_name
WHERE tc.constraint_type = 'PRIMARY KEY'
  AND tc.table_schema = current_schema()
  AND tc.table_name = $1
ORDER BY kcu.ordinal_position`

// PrimaryKey lists the primary key columns of table in key order
func (Dialect) PrimaryKey(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, primaryKeySQL, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
