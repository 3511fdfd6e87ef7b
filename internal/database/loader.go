// Package database loads the schema and table dumps of an Access file into
// a relational database (PostgreSQL or MySQL).
//
// The catalog feeding a Loader must be opened with the dialect of the target
// engine, see Driver.Dialect. Dumps are split into single statements and run
// in order: the schema first, then the INSERTs of every requested table.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/logger"
)

// Source is the part of *catalog.Catalog a Loader reads from.
type Source interface {
	Tables() []string
	HasTable(table string) bool
	Schema(ctx context.Context) (string, error)
	SQL(ctx context.Context, table string) (string, error)
}

// LoadReport summarises a finished load.
type LoadReport struct {
	Tables     []string
	Statements int
}

// Loader runs dumps against a DB.
type Loader struct {
	db      DB
	log     *logger.Logger
	timeout time.Duration
}

// NewLoader builds a Loader. timeout bounds every single statement; zero
// means no per-statement deadline. A nil log discards output.
func NewLoader(db DB, timeout time.Duration, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{db: db, log: log, timeout: timeout}
}

// Load creates the schema and inserts the rows of tables. An empty tables
// list loads every table of src. Unknown tables fail before anything runs.
// Every loaded table must exist in the database afterwards.
func (l *Loader) Load(ctx context.Context, src Source, tables []string) (*LoadReport, error) {
	if len(tables) == 0 {
		tables = src.Tables()
	}
	for _, t := range tables {
		if !src.HasTable(t) {
			return nil, errs.New(errs.ErrKindUnknownTable, fmt.Sprintf("table %q not found", t))
		}
	}

	report := &LoadReport{}

	schema, err := src.Schema(ctx)
	if err != nil {
		return report, err
	}
	if err := l.execAll(ctx, report, "schema", schema); err != nil {
		return report, err
	}

	for _, t := range tables {
		dump, err := src.SQL(ctx, t)
		if err != nil {
			return report, err
		}
		if err := l.execAll(ctx, report, t, dump); err != nil {
			return report, err
		}

		ok, err := l.db.TableExists(ctx, t)
		if err != nil {
			return report, err
		}
		if !ok {
			return report, errs.New(errs.ErrKindQueryFailed, fmt.Sprintf("table %q missing after load", t))
		}
		report.Tables = append(report.Tables, t)
	}

	l.log.InfoWith("load finished", map[string]interface{}{
		"tables":     len(report.Tables),
		"statements": report.Statements,
	})
	return report, nil
}

func (l *Loader) execAll(ctx context.Context, report *LoadReport, what, dump string) error {
	stmts := SplitStatements(dump)
	for i, stmt := range stmts {
		if err := l.exec(ctx, stmt); err != nil {
			return errs.Wrap(errs.KindOf(err), fmt.Sprintf("loading %s: statement %d of %d", what, i+1, len(stmts)), err)
		}
		report.Statements++
	}
	l.log.DebugWith("dump loaded", map[string]interface{}{"dump": what, "statements": len(stmts)})
	return nil
}

func (l *Loader) exec(ctx context.Context, stmt string) error {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.db.Exec(ctx, stmt)
}
