package cliopt

import (
	"github.com/spf13/pflag"

	"github.com/gridquery/gridquery/internal/config"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Non-empty values override the loaded config.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	ConfigPath     string
	Backend        string
	SQLitePath     string
	SQLiteDriver   string
	PostgresDSN    string
	PostgresSchema string
	ColumnSearch   string

	Format string
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Format: "pretty",
	}
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	fs.StringVarP(&g.ConfigPath, "config", "c", g.ConfigPath, "config file (yaml, json or toml)")

	fs.StringVar(&g.Backend, "backend", g.Backend, "backend: sqlite|postgres")

	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite database file")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "sqlite driver: sqlite (pure Go)|sqlite3 (cgo)")

	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema pinned first on search_path")

	fs.StringVar(&g.ColumnSearch, "column-search", g.ColumnSearch, "column search policy: always|searchable")
	fs.StringVar(&g.Format, "format", g.Format, "output format: pretty|json")
}

// Apply copies the options that were set onto cfg
func (g GlobalOptions) Apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Backend, g.Backend)
	set(&cfg.SQLite.Path, g.SQLitePath)
	set(&cfg.SQLite.Driver, g.SQLiteDriver)
	set(&cfg.Postgres.DSN, g.PostgresDSN)
	set(&cfg.Postgres.Schema, g.PostgresSchema)
	set(&cfg.ColumnSearch, g.ColumnSearch)
}
