package sql

import (
	"database/sql"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// DriverName maps a dialect name to the registered database/sql driver.
func DriverName(dialect string) (string, error) {
	switch strings.ToLower(dialect) {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "mysql", "mariadb":
		return "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	}
	return "", errors.Errorf("no database/sql driver for dialect %q", dialect)
}

// Open opens a database for the named dialect.
func Open(dialect, dsn string) (*sql.DB, error) {
	driver, err := DriverName(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s database", driver)
	}
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		// Every connection to :memory: is a new database.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
