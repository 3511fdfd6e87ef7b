package database_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/koustreak/mdbread/internal/database"
	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/mdbtools"
	"github.com/koustreak/mdbread/internal/mdbtools/mdbtoolstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB records executed statements and treats every CREATE TABLE as
// creating the table it names.
type fakeDB struct {
	mu       sync.Mutex
	stmts    []string
	tables   map[string]bool
	failOn   string
	deadline bool
}

func newFakeDB() *fakeDB { return &fakeDB{tables: map[string]bool{}} }

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close()                     {}

func (f *fakeDB) Exec(ctx context.Context, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		f.deadline = true
	}
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return errs.New(errs.ErrKindQueryFailed, "exec failed: boom")
	}
	f.stmts = append(f.stmts, sql)
	if rest, ok := strings.CutPrefix(sql, "CREATE TABLE "); ok {
		name := strings.Trim(strings.Fields(rest)[0], "\"`")
		f.tables[name] = true
	}
	return nil
}

func (f *fakeDB) ListTables(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for t := range f.tables {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeDB) TableExists(_ context.Context, table string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[table], nil
}

const file = "Biblio.mdb"

const schemaDump = `-- ----------------------------------------------------------
-- MDB Tools - A library for reading MS Access database files
-- ----------------------------------------------------------

CREATE TABLE "Titles"
 (
	"Title"	VARCHAR (255),
	"ISBN"	VARCHAR (20)
);

CREATE TABLE "Authors"
 (
	"Au_ID"	INTEGER,
	"Author"	VARCHAR (50)
);
`

func openCatalog(t *testing.T) (*catalog.Catalog, *mdbtoolstest.Runner) {
	t.Helper()
	runner := mdbtoolstest.NewRunner().
		On(mdbtoolstest.Response{Stdout: "Titles Authors\n"}, "mdb-tables", file).
		On(mdbtoolstest.Response{Stdout: schemaDump}, "mdb-schema", file, "postgres").
		On(mdbtoolstest.Response{Stdout: "INSERT INTO \"Titles\" (\"Title\", \"ISBN\") VALUES ('SQL; A Primer','0-0');\n" +
			"INSERT INTO \"Titles\" (\"Title\", \"ISBN\") VALUES ('O''Reilly','1-1');\n"},
			"mdb-export", "-H", "-I", "postgres", file, "Titles").
		On(mdbtoolstest.Response{Stdout: "INSERT INTO \"Authors\" (\"Au_ID\", \"Author\") VALUES (1,'Knuth');\n"},
			"mdb-export", "-H", "-I", "postgres", file, "Authors")

	cfg := mdbtools.DefaultConfig()
	cfg.Dialect = database.DriverPostgres.Dialect()
	cat, err := catalog.Open(context.Background(), mdbtools.New(cfg, runner, nil), file)
	require.NoError(t, err)
	return cat, runner
}

func TestLoader_LoadAll(t *testing.T) {
	cat, _ := openCatalog(t)
	db := newFakeDB()

	report, err := database.NewLoader(db, 0, nil).Load(context.Background(), cat, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Authors", "Titles"}, report.Tables)
	assert.Equal(t, 5, report.Statements)
	require.Len(t, db.stmts, 5)
	assert.True(t, strings.HasPrefix(db.stmts[0], `CREATE TABLE "Titles"`))
	assert.True(t, strings.HasPrefix(db.stmts[1], `CREATE TABLE "Authors"`))
	assert.Contains(t, db.stmts[2], "'Knuth'")
	assert.Contains(t, db.stmts[3], "'SQL; A Primer'")
	assert.Contains(t, db.stmts[4], "'O''Reilly'")
	assert.False(t, db.deadline)
}

func TestLoader_Subset(t *testing.T) {
	cat, runner := openCatalog(t)
	db := newFakeDB()

	report, err := database.NewLoader(db, time.Minute, nil).Load(context.Background(), cat, []string{"Authors"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Authors"}, report.Tables)
	assert.Zero(t, runner.Calls("mdb-export", "-H", "-I", "postgres", file, "Titles"))
	assert.True(t, db.deadline)
}

func TestLoader_UnknownTable(t *testing.T) {
	cat, runner := openCatalog(t)
	before := runner.Total()
	db := newFakeDB()

	report, err := database.NewLoader(db, 0, nil).Load(context.Background(), cat, []string{"Missing"})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errs.IsUnknownTable(err))
	assert.Equal(t, before, runner.Total())
	assert.Empty(t, db.stmts)
}

func TestLoader_ExecFailure(t *testing.T) {
	cat, _ := openCatalog(t)
	db := newFakeDB()
	db.failOn = "Knuth"

	report, err := database.NewLoader(db, 0, nil).Load(context.Background(), cat, nil)
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), "loading Authors: statement 1 of 1")
	require.NotNil(t, report)
	assert.Empty(t, report.Tables)
	assert.Equal(t, 2, report.Statements)
}

func TestLoader_FetchFailure(t *testing.T) {
	cat, runner := openCatalog(t)
	runner.On(mdbtoolstest.Response{Stderr: "corrupt page", ExitCode: 1}, "mdb-schema", file, "postgres")
	db := newFakeDB()

	_, err := database.NewLoader(db, 0, nil).Load(context.Background(), cat, nil)
	require.Error(t, err)
	assert.True(t, errs.IsFetchFailed(err))
	assert.Empty(t, db.stmts)
}

func TestLoader_TableMissingAfterLoad(t *testing.T) {
	cat, runner := openCatalog(t)
	runner.On(mdbtoolstest.Response{Stdout: "CREATE TABLE \"Titles\" (\"Title\" VARCHAR (255));\n"}, "mdb-schema", file, "postgres")
	db := newFakeDB()

	report, err := database.NewLoader(db, 0, nil).Load(context.Background(), cat, []string{"Authors"})
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), `table "Authors" missing after load`)
	assert.Empty(t, report.Tables)
}

func TestLoader_CanceledContext(t *testing.T) {
	cat, _ := openCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := database.NewLoader(newFakeDB(), 0, nil).Load(ctx, cat, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
