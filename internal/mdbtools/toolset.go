// Package mdbtools drives the mdbtools command-line programs (mdb-tables,
// mdb-schema, mdb-export) that understand the legacy database file format.
//
// Parsing is delegated entirely to the tools; this package only builds
// argument lists, runs the programs through a Runner and decodes their
// standard output as UTF-8 text.
//
// Usage:
//
//	tools := mdbtools.New(mdbtools.DefaultConfig(), &mdbtools.ExecRunner{}, log)
//	names, err := tools.ListTables(ctx, "Biblio.mdb")
package mdbtools

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/logger"
)

// Toolset runs the external programs described by a Config.
// It holds no per-file state and is safe for concurrent use when its
// Runner is.
type Toolset struct {
	cfg    Config
	runner Runner
	log    *logger.Logger
}

// New builds a Toolset. A nil cfg means DefaultConfig, a nil runner means
// ExecRunner and a nil log discards output.
func New(cfg *Config, runner Runner, log *logger.Logger) *Toolset {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if runner == nil {
		runner = &ExecRunner{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Toolset{cfg: *cfg, runner: runner, log: log}
}

// Dialect returns the SQL dialect used for schema and SQL dumps.
func (t *Toolset) Dialect() Dialect {
	return t.cfg.Dialect
}

// ListTables returns the whitespace-separated table names printed by the
// table listing tool for path.
func (t *Toolset) ListTables(ctx context.Context, path string) ([]string, error) {
	out, err := t.run(ctx, t.cfg.TablesCmd, path)
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}

// Schema returns the full schema of path rendered in the configured dialect.
func (t *Toolset) Schema(ctx context.Context, path string) (string, error) {
	return t.run(ctx, t.cfg.SchemaCmd, path, string(t.cfg.Dialect))
}

// ExportCSV returns the rows of table as CSV.
func (t *Toolset) ExportCSV(ctx context.Context, path, table string) (string, error) {
	return t.run(ctx, t.cfg.ExportCmd, path, table)
}

// ExportSQL returns the rows of table as INSERT statements in the configured
// dialect, with the header flag set.
func (t *Toolset) ExportSQL(ctx context.Context, path, table string) (string, error) {
	return t.run(ctx, t.cfg.ExportCmd, "-H", "-I", string(t.cfg.Dialect), path, table)
}

// run executes one tool and returns its stdout as text. Any failure to start,
// any non-zero exit and any non UTF-8 output is an error; stderr only ever
// reaches the caller inside that error.
func (t *Toolset) run(ctx context.Context, name string, args ...string) (string, error) {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := t.runner.Run(ctx, name, args...)
	elapsed := time.Since(start)

	if err != nil || res == nil || res.ExitCode != 0 {
		return "", mapError(ctx, err, res, fmt.Sprintf("%s failed", name))
	}

	fields := map[string]interface{}{
		"tool":     name,
		"args":     args,
		"duration": elapsed.String(),
		"stdout":   humanize.Bytes(uint64(len(res.Stdout))),
	}
	if len(res.Stderr) > 0 {
		fields["stderr"] = trimStderr(res.Stderr)
	}
	t.log.DebugWith("tool finished", fields)

	if !utf8.Valid(res.Stdout) {
		return "", errs.New(errs.ErrKindDecodeFailed, fmt.Sprintf("%s printed output that is not valid UTF-8", name))
	}
	return string(res.Stdout), nil
}
