// Package export writes the schema and table dumps of a catalog to a Sink:
// a local directory or a bucket in object storage.
//
// Files are named schema.sql, <table>.csv and <table>.sql. Every dump goes
// through the catalog, so anything already fetched is reused and anything
// exported stays cached for later callers.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/logger"
)

// SchemaFile is the name the schema dump is written under.
const SchemaFile = "schema.sql"

// Source is the part of *catalog.Catalog an Exporter reads from.
type Source interface {
	Tables() []string
	HasTable(table string) bool
	Schema(ctx context.Context) (string, error)
	Data(ctx context.Context, table string, f catalog.Format) (string, error)
}

// Options selects what to export. Zero values mean everything.
type Options struct {
	// Tables restricts the export to these tables. Empty means all.
	Tables []string

	// Formats restricts the per-table dumps. Empty means CSV and SQL.
	Formats []catalog.Format

	// SkipSchema leaves schema.sql out.
	SkipSchema bool
}

// File is one written dump.
type File struct {
	Name     string
	Location string
	Bytes    int
}

// Report summarises a finished export.
type Report struct {
	Files []File
	Bytes int64
}

// Exporter copies dumps from a Source to a Sink.
type Exporter struct {
	src  Source
	sink Sink
	log  *logger.Logger
}

// New builds an Exporter. A nil log discards output.
func New(src Source, sink Sink, log *logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{src: src, sink: sink, log: log}
}

// Run performs the export. Requested tables are checked up front; an
// unknown one, or two tables whose file names clash, fails the run before
// anything is fetched or written.
// The first failing dump or write stops the run; files already written are
// listed in the returned report.
func (e *Exporter) Run(ctx context.Context, opts Options) (*Report, error) {
	tables := opts.Tables
	if len(tables) == 0 {
		tables = e.src.Tables()
	}
	for _, t := range tables {
		if !e.src.HasTable(t) {
			return nil, errs.New(errs.ErrKindUnknownTable, fmt.Sprintf("table %q not found", t))
		}
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = catalog.Formats
	}
	tables = dedupe(tables)
	if err := checkNames(tables, formats, !opts.SkipSchema); err != nil {
		return nil, err
	}

	report := &Report{}

	if !opts.SkipSchema {
		schema, err := e.src.Schema(ctx)
		if err != nil {
			return report, err
		}
		if err := e.put(ctx, report, SchemaFile, "application/sql; charset=utf-8", schema); err != nil {
			return report, err
		}
	}

	for _, t := range tables {
		for _, f := range formats {
			data, err := e.src.Data(ctx, t, f)
			if err != nil {
				return report, err
			}
			if err := e.put(ctx, report, FileName(t, f), f.ContentType(), data); err != nil {
				return report, err
			}
		}
	}

	e.log.InfoWith("export finished", map[string]interface{}{
		"files": len(report.Files),
		"size":  humanize.Bytes(uint64(report.Bytes)),
	})
	return report, nil
}

func (e *Exporter) put(ctx context.Context, report *Report, name, contentType, data string) error {
	loc, err := e.sink.Put(ctx, name, contentType, []byte(data))
	if err != nil {
		return err
	}
	report.Files = append(report.Files, File{Name: name, Location: loc, Bytes: len(data)})
	report.Bytes += int64(len(data))
	e.log.DebugWith("dump written", map[string]interface{}{"name": name, "location": loc})
	return nil
}

// checkNames rejects table sets whose dump file names would collide, such
// as "a/b" and "a_b", so no dump silently replaces another.
func checkNames(tables []string, formats []catalog.Format, withSchema bool) error {
	owner := make(map[string]string, len(tables)*len(formats)+1)
	if withSchema {
		owner[SchemaFile] = ""
	}
	for _, t := range tables {
		for _, f := range formats {
			name := FileName(t, f)
			prev, taken := owner[name]
			if !taken {
				owner[name] = t
				continue
			}
			if prev == "" {
				return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("table %q exports as %s, which clashes with the schema file", t, name))
			}
			return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("tables %q and %q both export as %s", prev, t, name))
		}
	}
	return nil
}

func dedupe(tables []string) []string {
	seen := make(map[string]bool, len(tables))
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// FileName returns the file name of a table dump. Path separators in table
// names are replaced so every dump stays a single file.
func FileName(table string, f catalog.Format) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(table)
	return safe + f.Ext()
}
