package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/storage"
	"github.com/gridquery/gridquery/internal/cliopt"
	"github.com/gridquery/gridquery/internal/config"
)

// ResolveConfig loads the config file named by the global options and
// applies the flag overrides on top
func ResolveConfig(g cliopt.GlobalOptions) (*config.Config, error) {
	var cfg config.Config
	if err := config.Load(g.ConfigPath, config.EnvPrefix, &cfg); err != nil {
		return nil, gridquery.Wrap(gridquery.ErrConfig, "load", err)
	}
	g.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Backend is an open database connection and the adapter that made it
type Backend struct {
	DB      *sql.DB
	Adapter storage.Adapter
}

func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	adapter, err := cfg.Adapter()
	if err != nil {
		return nil, err
	}
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", adapter.Backend(), err)
	}
	return &Backend{DB: db, Adapter: adapter}, nil
}

func (b *Backend) Close() error {
	err := b.DB.Close()
	if cerr := b.Adapter.Close(); err == nil {
		err = cerr
	}
	return err
}

// OpenTable returns the table as a source of dynamic rows. A table left
// without key columns is logged, since its pages may shift between requests.
func (b *Backend) OpenTable(ctx context.Context, gc config.GridConfig) (*storage.Table[record.Row], error) {
	tbl, err := storage.OpenRows(ctx, b.DB, b.Adapter, gc.TableName(), storage.TableOptions{KeyColumns: gc.KeyColumns})
	if err != nil {
		return nil, err
	}
	if len(tbl.KeyColumns()) == 0 {
		logger.Warn().Str("table", gc.TableName()).Msg("no key columns or primary key; equal sort values may page unstably")
	}
	return tbl, nil
}

// OpenGrid returns a grid over the table of gc
func (b *Backend) OpenGrid(ctx context.Context, gc config.GridConfig, policy gridquery.ColumnSearchPolicy) (*gridquery.Grid[record.Row], error) {
	tbl, err := b.OpenTable(ctx, gc)
	if err != nil {
		return nil, err
	}
	name := gc.Name
	if name == "" {
		name = gc.TableName()
	}
	return gridquery.NewGrid(name, tbl, gridquery.WithColumnSearch(policy))
}

// OpenGrids opens every configured grid
func (b *Backend) OpenGrids(ctx context.Context, cfg *config.Config) ([]gridquery.Runner, error) {
	out := make([]gridquery.Runner, 0, len(cfg.Grids))
	for _, gc := range cfg.Grids {
		g, err := b.OpenGrid(ctx, gc, cfg.ColumnSearchPolicy())
		if err != nil {
			return nil, fmt.Errorf("open grid %s: %w", gc.Name, err)
		}
		out = append(out, g)
	}
	return out, nil
}
