package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/gridquery/gridquery/gridquery/storage"
	"github.com/gridquery/gridquery/gridquery/storage/sqlbuilder"
)

type Adapter struct {
	DSN    string
	Schema string // pinned first on search_path; empty keeps the server default
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) Dialect() storage.Dialect { return Dialect{} }

// DefaultKeyColumns is nil: Postgres tables carry no implicit row key, so
// tables order by their primary key, read through Dialect.PrimaryKey.
func (a *Adapter) DefaultKeyColumns() []string { return nil }

// ConnConfig parses the DSN and pins search_path to the schema
func (a *Adapter) ConnConfig() (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if a.Schema == "" {
		return cfg, nil
	}
	if !storage.ValidIdent(a.Schema) {
		return nil, fmt.Errorf("invalid postgres schema name %q", a.Schema)
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	// public stays as a fallback for built-ins; schema is first.
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))
	return cfg, nil
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	cfg, err := a.ConnConfig()
	if err != nil {
		return nil, err
	}
	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
