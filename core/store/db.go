package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"sentinel-desk/config"
	"sentinel-desk/core/utils"
)

// DB wraps the pooled sql.DB together with the driver flavor so stores
// can rebind placeholders. The pool is opened once per process and
// shared by every store.
type DB struct {
	*sql.DB
	driver string
}

func (d *DB) IsPostgres() bool {
	return d != nil && d.driver == "pgx"
}

// Rebind rewrites ? placeholders to $n for postgres. All store SQL is
// written with ? and every caller-supplied value is bound as a
// parameter; nothing is ever interpolated into the query text.
func (d *DB) Rebind(query string) string {
	if !d.IsPostgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func NewDB(cfg *config.AppConfig, logger *utils.Logger) (*DB, error) {
	driver := "pgx"
	dsn := cfg.DBURL
	if strings.TrimSpace(cfg.DBPath) != "" || strings.EqualFold(cfg.DBDriver, "sqlite") {
		driver = "sqlite"
		dsn = strings.TrimSpace(cfg.DBPath)
		if dsn == "" {
			dsn = "file::memory:?cache=shared&_pragma=foreign_keys(1)"
		} else {
			dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if logger != nil {
		logger.Printf("database opened (driver=%s)", driver)
	}
	return &DB{DB: db, driver: driver}, nil
}
