// Package catalog is a read-only, lazily populated view of one legacy
// database file.
//
// Opening a Catalog lists the file's tables once. The schema and each
// table's CSV and SQL dumps are fetched from the external tools on first
// request and kept for the life of the Catalog: a value, once fetched, is
// never fetched again, and a failed fetch is never cached.
//
// Usage:
//
//	tools := mdbtools.New(mdbtools.DefaultConfig(), nil, log)
//	cat, err := catalog.Open(ctx, tools, "Biblio.mdb")
//	if err != nil { ... }
//
//	csv, err := cat.CSV(ctx, "Titles")
//	if errs.IsUnknownTable(err) { ... }
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/koustreak/mdbread/internal/errs"
	"golang.org/x/sync/singleflight"
)

// Tools is the set of external calls a Catalog delegates to.
// *mdbtools.Toolset implements it.
type Tools interface {
	ListTables(ctx context.Context, path string) ([]string, error)
	Schema(ctx context.Context, path string) (string, error)
	ExportCSV(ctx context.Context, path, table string) (string, error)
	ExportSQL(ctx context.Context, path, table string) (string, error)
}

// Catalog owns the file reference, the fixed table set and the cached dumps.
// It is safe for concurrent use; concurrent requests for the same value
// share a single external call.
type Catalog struct {
	path  string
	tools Tools

	mu     sync.Mutex
	tables map[string]*entry // keys never change after Open
	schema *string           // one schema per database, not per table

	inflight singleflight.Group
}

// entry holds the cached dumps of one table. A nil field has not been
// fetched successfully yet.
type entry struct {
	sql *string
	csv *string
}

func (e *entry) field(f Format) **string {
	if f == FormatSQL {
		return &e.sql
	}
	return &e.csv
}

// Open lists the tables of the database file at path. No schema or row data
// is fetched until asked for.
func Open(ctx context.Context, tools Tools, path string) (*Catalog, error) {
	if path == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "database path must not be empty")
	}

	names, err := tools.ListTables(ctx, path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindDiscoveryFailed, fmt.Sprintf("failed to list tables of %s", path), err)
	}

	tables := make(map[string]*entry, len(names))
	for _, name := range names {
		tables[name] = &entry{}
	}

	return &Catalog{path: path, tools: tools, tables: tables}, nil
}

// Path returns the database file this catalog was opened on.
func (c *Catalog) Path() string {
	return c.path
}

// Tables returns the discovered table names in sorted order.
// The slice is a copy; modifying it does not affect the catalog.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasTable reports whether table is part of the discovered set.
func (c *Catalog) HasTable(table string) bool {
	_, ok := c.tables[table]
	return ok
}

// Schema returns the database schema, running the schema dump on first use.
func (c *Catalog) Schema(ctx context.Context) (string, error) {
	what := fmt.Sprintf("failed to dump schema of %s", c.path)
	return c.load(ctx, "schema", what, func() **string { return &c.schema }, func(ctx context.Context) (string, error) {
		return c.tools.Schema(ctx, c.path)
	})
}

// CSV returns the rows of table as CSV, running the export on first use.
func (c *Catalog) CSV(ctx context.Context, table string) (string, error) {
	return c.Data(ctx, table, FormatCSV)
}

// SQL returns the rows of table as SQL statements, running the export on
// first use.
func (c *Catalog) SQL(ctx context.Context, table string) (string, error) {
	return c.Data(ctx, table, FormatSQL)
}

// Data returns the dump of table in format f. Tables outside the discovered
// set fail with an unknown_table error before any external call is made.
func (c *Catalog) Data(ctx context.Context, table string, f Format) (string, error) {
	e, ok := c.tables[table]
	if !ok {
		return "", errs.New(errs.ErrKindUnknownTable, fmt.Sprintf("table %q not found in %s", table, c.path))
	}
	if !f.Valid() {
		return "", errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported format: %d", f))
	}

	key := f.String() + "\x00" + table
	what := fmt.Sprintf("failed to export %s as %s", table, f)
	return c.load(ctx, key, what, func() **string { return e.field(f) }, func(ctx context.Context) (string, error) {
		if f == FormatSQL {
			return c.tools.ExportSQL(ctx, c.path, table)
		}
		return c.tools.ExportCSV(ctx, c.path, table)
	})
}

// Cached reports whether the dump of table in format f is already held.
func (c *Catalog) Cached(table string, f Format) bool {
	e, ok := c.tables[table]
	if !ok || !f.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return *e.field(f) != nil
}

// SchemaCached reports whether the schema is already held.
func (c *Catalog) SchemaCached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema != nil
}

// load is the read-through path shared by every accessor: return the slot's
// value when set, otherwise run fetch once per key across concurrent callers
// and store the result only when fetch succeeds.
//
// The shared fetch runs detached from the cancellation of whichever caller
// started it, so one caller giving up never fails the others. Each caller
// still stops waiting when its own ctx is done. Failures are wrapped as
// fetch_failed with the message what.
func (c *Catalog) load(ctx context.Context, key, what string, slot func() **string, fetch func(context.Context) (string, error)) (string, error) {
	if v, ok := c.cached(slot); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return "", canceled(what, err)
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(key, func() (interface{}, error) {
		// A flight for this key may have completed since the check above.
		if v, ok := c.cached(slot); ok {
			return v, nil
		}
		out, err := fetch(flightCtx)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindFetchFailed, what, err)
		}
		c.mu.Lock()
		*slot() = &out
		c.mu.Unlock()
		return out, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", canceled(what, ctx.Err())
	}
}

func canceled(what string, err error) error {
	return errs.Wrap(errs.ErrKindFetchFailed, what, errs.Wrap(errs.ErrKindTimeout, "caller gave up", err))
}

func (c *Catalog) cached(slot func() **string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := *slot(); p != nil {
		return *p, true
	}
	return "", false
}
