package mdbtools

import (
	"fmt"
	"time"

	"github.com/koustreak/mdbread/internal/errs"
)

// Dialect is the SQL flavour mdb-schema and mdb-export emit.
type Dialect string

const (
	DialectAccess   Dialect = "access"
	DialectSybase   Dialect = "sybase"
	DialectOracle   Dialect = "oracle"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
)

// Valid reports whether the tools understand d.
func (d Dialect) Valid() bool {
	switch d {
	case DialectAccess, DialectSybase, DialectOracle, DialectPostgres, DialectMySQL, DialectSQLite:
		return true
	}
	return false
}

// Config holds the commands and options used to talk to the toolset.
type Config struct {
	// TablesCmd lists the tables of a database file.
	TablesCmd string

	// SchemaCmd dumps the schema of a database file.
	SchemaCmd string

	// ExportCmd dumps the rows of one table as CSV or SQL.
	ExportCmd string

	// Dialect is passed to SchemaCmd and to ExportCmd -I.
	Dialect Dialect

	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
}

// DefaultConfig returns the stock mdbtools command names with the sqlite dialect.
func DefaultConfig() *Config {
	return &Config{
		TablesCmd: "mdb-tables",
		SchemaCmd: "mdb-schema",
		ExportCmd: "mdb-export",
		Dialect:   DialectSQLite,
	}
}

// Validate checks that every command is set and the dialect is known.
func (c *Config) Validate() error {
	if c.TablesCmd == "" || c.SchemaCmd == "" || c.ExportCmd == "" {
		return errs.New(errs.ErrKindInvalidInput, "tool commands must not be empty")
	}
	if !c.Dialect.Valid() {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported dialect: %q", c.Dialect))
	}
	if c.Timeout < 0 {
		return errs.New(errs.ErrKindInvalidInput, "timeout must not be negative")
	}
	return nil
}
