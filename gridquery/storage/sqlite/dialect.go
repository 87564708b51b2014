package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/storage"
)

// Dialect renders SQLite SQL. NULL sorts first ascending and text compares
// with the BINARY collation, so orderings need no decoration.
type Dialect struct{}

func (Dialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (Dialect) Contains(col, arg string) string {
	return fmt.Sprintf("instr(%s, %s) > 0", col, arg)
}

func (Dialect) ContainsText(col, arg string) string {
	return fmt.Sprintf("instr(CAST(%s AS TEXT), %s) > 0", col, arg)
}

func (Dialect) OrderTerm(col string, desc bool, _ record.Kind) string {
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}

func (Dialect) Window(skip, take int) string {
	switch {
	case take >= 0 && skip > 0:
		return fmt.Sprintf("LIMIT %d OFFSET %d", take, skip)
	case take >= 0:
		return fmt.Sprintf("LIMIT %d", take)
	case skip > 0:
		return fmt.Sprintf("LIMIT -1 OFFSET %d", skip)
	}
	return ""
}

func (d Dialect) Columns(ctx context.Context, db *sql.DB, table string) ([]storage.ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, type, \"notnull\" FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.ColumnInfo
	for rows.Next() {
		var (
			name, decl string
			notNull    int
		)
		if err := rows.Scan(&name, &decl, &notNull); err != nil {
			return nil, err
		}
		out = append(out, storage.ColumnInfo{Name: name, DeclType: decl, Nullable: notNull == 0})
	}
	return out, rows.Err()
}
