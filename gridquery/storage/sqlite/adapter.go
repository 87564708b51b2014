package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/gridquery/gridquery/gridquery/storage"
	"github.com/gridquery/gridquery/gridquery/storage/sqlbuilder"
)

const (
	// DriverModernc is the pure Go modernc.org/sqlite driver
	DriverModernc = "sqlite"
	// DriverCGO is the mattn/go-sqlite3 driver
	DriverCGO = "sqlite3"
)

type Adapter struct {
	Path       string
	DriverName string
}

// New returns an adapter using the modernc driver. The caller imports the
// driver package.
func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	if driver == "" {
		driver = DriverModernc
	}
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

// DSN returns the connection string with busy timeout applied in the
// parameter syntax of the configured driver
func (a *Adapter) DSN() string {
	param := "_busy_timeout=5000"
	if a.DriverName == DriverModernc {
		param = "_pragma=busy_timeout(5000)"
	}
	if strings.Contains(a.Path, "?") {
		return a.Path + "&" + param
	}
	return a.Path + "?" + param
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(a.DriverName, a.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) Dialect() storage.Dialect {
	return Dialect{}
}

func (a *Adapter) DefaultKeyColumns() []string {
	return []string{"rowid"}
}
