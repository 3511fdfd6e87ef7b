package database

import "context"

// DB is the contract the loader needs from a target database.
// The postgres and mysql packages implement it; nothing above this package
// imports them directly except the command that picks one.
type DB interface {
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the connection pool.
	Close()

	// Exec runs one SQL statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// ListTables returns all user-defined table names.
	ListTables(ctx context.Context) ([]string, error)

	// TableExists reports whether a table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)
}
