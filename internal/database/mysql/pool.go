package mysql

import (
	"database/sql"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/mdbread/internal/database"
	"github.com/koustreak/mdbread/internal/errs"
)

const (
	defaultMaxOpenConns    = 4
	defaultMaxIdleConns    = 1
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnTimeout     = 10 * time.Second
)

// driverConfig parses the DSN and applies the connection settings of cfg.
func driverConfig(cfg *database.Config) (*gomysql.Config, error) {
	dc, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}
	if dc.DBName == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "mysql DSN must name a database")
	}

	dc.Timeout = defaultConnTimeout
	if cfg.ConnectTimeout > 0 {
		dc.Timeout = cfg.ConnectTimeout
	}
	// dumps are split client side, one statement per Exec
	dc.MultiStatements = false

	return dc, nil
}

// buildPool configures and returns a *sql.DB with pool settings
func buildPool(cfg *database.Config) (*sql.DB, error) {
	dc, err := driverConfig(cfg)
	if err != nil {
		return nil, err
	}

	connector, err := gomysql.NewConnector(dc)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql config", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(withDefault(int(cfg.MaxConns), defaultMaxOpenConns))
	db.SetMaxIdleConns(withDefault(int(cfg.MinConns), defaultMaxIdleConns))
	db.SetConnMaxLifetime(withDefaultDuration(cfg.MaxConnLifetime, defaultConnMaxLifetime))
	db.SetConnMaxIdleTime(withDefaultDuration(cfg.MaxConnIdleTime, defaultConnMaxIdleTime))

	return db, nil
}

func withDefault(val, def int) int {
	if val == 0 {
		return def
	}
	return val
}

func withDefaultDuration(val, def time.Duration) time.Duration {
	if val == 0 {
		return def
	}
	return val
}
