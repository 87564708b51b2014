package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/gridquery/storage"
	"github.com/gridquery/gridquery/gridquery/storage/postgres"
	"github.com/gridquery/gridquery/gridquery/storage/sqlite"
)

// EnvPrefix prefixes environment overrides: GRIDQUERY_HTTP_PORT sets http.port
const EnvPrefix = "GRIDQUERY_"

type Config struct {
	HTTP         HTTPConfig     `mapstructure:"http"`
	Backend      string         `mapstructure:"backend"`
	SQLite       SQLiteConfig   `mapstructure:"sqlite"`
	Postgres     PostgresConfig `mapstructure:"postgres"`
	ColumnSearch string         `mapstructure:"columnsearch"`
	Grids        []GridConfig   `mapstructure:"grids"`
}

type HTTPConfig struct {
	Port             int `mapstructure:"port"`
	ShutdownSleepSec int `mapstructure:"shutdownsleepsec"`
}

type SQLiteConfig struct {
	Path   string `mapstructure:"path"`
	Driver string `mapstructure:"driver"`
}

type PostgresConfig struct {
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

// GridConfig exposes one table as a grid. Nil KeyColumns uses the backend
// default tie-breaker: rowid on SQLite, the primary key on Postgres.
type GridConfig struct {
	Name       string   `mapstructure:"name"`
	Table      string   `mapstructure:"table"`
	KeyColumns []string `mapstructure:"keycolumns"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdownsleepsec", 0)
	v.SetDefault("backend", string(storage.BackendSQLite))
	v.SetDefault("sqlite.path", "gridquery.db")
	v.SetDefault("sqlite.driver", sqlite.DriverModernc)
	v.SetDefault("columnsearch", string(gridquery.ColumnSearchAlways))
}

// Load reads path when it is not empty (format by extension), then applies
// environment variables starting with prefix, and unmarshals into target.
func Load(path, prefix string, target any) error {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// GRIDQUERY_SQLITE_PATH -> sqlite.path
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		propKey := strings.TrimPrefix(key, prefixUpper)
		propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
		propKey = strings.TrimPrefix(propKey, ".")
		if propKey == "" {
			continue
		}
		v.Set(propKey, value)
	}

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// LoadConfig loads a Config with the GRIDQUERY_ prefix and validates it
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := Load(path, EnvPrefix, &cfg); err != nil {
		return nil, gridquery.Wrap(gridquery.ErrConfig, "load", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch storage.Backend(strings.ToLower(c.Backend)) {
	case storage.BackendSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, gridquery.ConfigError("sqlite.path", "required"))
		}
		switch c.SQLite.Driver {
		case "", sqlite.DriverModernc, sqlite.DriverCGO:
		default:
			errs = append(errs, gridquery.ConfigError("sqlite.driver", fmt.Sprintf("unknown driver %q", c.SQLite.Driver)))
		}
	case storage.BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, gridquery.ConfigError("postgres.dsn", "required"))
		}
		if c.Postgres.Schema != "" && !storage.ValidIdent(c.Postgres.Schema) {
			errs = append(errs, gridquery.ConfigError("postgres.schema", fmt.Sprintf("invalid schema %q", c.Postgres.Schema)))
		}
	default:
		errs = append(errs, gridquery.ConfigError("backend", fmt.Sprintf("unknown backend %q", c.Backend)))
	}

	if _, err := gridquery.ParseColumnSearchPolicy(c.ColumnSearch); err != nil {
		errs = append(errs, gridquery.ConfigError("columnsearch", err.Error()))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, gridquery.ConfigError("http.port", fmt.Sprintf("out of range: %d", c.HTTP.Port)))
	}

	seen := make(map[string]bool, len(c.Grids))
	for i, g := range c.Grids {
		field := fmt.Sprintf("grids[%d]", i)
		if g.Name == "" {
			errs = append(errs, gridquery.ConfigError(field+".name", "required"))
		} else if seen[g.Name] {
			errs = append(errs, gridquery.ConfigError(field+".name", fmt.Sprintf("duplicate grid %q", g.Name)))
		}
		seen[g.Name] = true
		if !storage.ValidIdent(g.TableName()) {
			errs = append(errs, gridquery.ConfigError(field+".table", fmt.Sprintf("invalid table %q", g.TableName())))
		}
		for _, k := range g.KeyColumns {
			if !storage.ValidIdent(k) {
				errs = append(errs, gridquery.ConfigError(field+".keycolumns", fmt.Sprintf("invalid column %q", k)))
			}
		}
	}
	return errors.Join(errs...)
}

// TableName is the grid's table, defaulting to its name
func (g GridConfig) TableName() string {
	if g.Table != "" {
		return g.Table
	}
	return g.Name
}

// ColumnSearchPolicy returns the parsed policy; call Validate first
func (c *Config) ColumnSearchPolicy() gridquery.ColumnSearchPolicy {
	p, _ := gridquery.ParseColumnSearchPolicy(c.ColumnSearch)
	return p
}

// Adapter returns the storage adapter of the configured backend
func (c *Config) Adapter() (storage.Adapter, error) {
	switch storage.Backend(strings.ToLower(c.Backend)) {
	case storage.BackendSQLite:
		return sqlite.NewWithDriver(c.SQLite.Path, c.SQLite.Driver), nil
	case storage.BackendPostgres:
		return postgres.New(c.Postgres.DSN, c.Postgres.Schema), nil
	}
	return nil, gridquery.ConfigError("backend", fmt.Sprintf("unknown backend %q", c.Backend))
}
