package catalog_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/mdbtools"
	"github.com/koustreak/mdbread/internal/mdbtools/mdbtoolstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const file = "Biblio.mdb"

var biblioTables = []string{"Author", "Authors", "Publishers", "Title", "Titles"}

var (
	titlesCSV = "Title,Year Published,ISBN,PubID\n\"dBASE III : A Practical Guide\",1985,\"0-0038307-6-4\",469\n" +
		"\"The dBASE Programming Language\",1986,\"0-0038326-7-8\",469\n"
	titlesSQL = "INSERT INTO `Titles` (`Title`, `Year Published`, `ISBN`, `PubID`) VALUES " +
		"(\"dBASE III : A Practical Guide\",1985,\"0-0038307-6-4\",469);\n"
	schemaSQL = "CREATE TABLE `Titles` (`Title` varchar, `Year Published` INTEGER, `ISBN` varchar, `PubID` INTEGER);\n"
)

// biblio returns a fake runner that answers like the mdbtools would for the
// Biblio fixture.
func biblio() *mdbtoolstest.Runner {
	return mdbtoolstest.NewRunner().
		On(mdbtoolstest.Response{Stdout: "Title Publishers Authors Author Titles \n"}, "mdb-tables", file).
		On(mdbtoolstest.Response{Stdout: schemaSQL}, "mdb-schema", file, "sqlite").
		On(mdbtoolstest.Response{Stdout: titlesCSV}, "mdb-export", file, "Titles").
		On(mdbtoolstest.Response{Stdout: titlesSQL}, "mdb-export", "-H", "-I", "sqlite", file, "Titles")
}

func open(t *testing.T, runner *mdbtoolstest.Runner) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(context.Background(), mdbtools.New(nil, runner, nil), file)
	require.NoError(t, err)
	return cat
}

func TestOpen_DiscoversTables(t *testing.T) {
	runner := biblio()
	cat := open(t, runner)

	assert.Equal(t, biblioTables, cat.Tables())
	assert.Equal(t, file, cat.Path())
	assert.True(t, cat.HasTable("Titles"))
	assert.False(t, cat.HasTable("titles"))

	// Discovery is the only external call made by Open.
	assert.Equal(t, 1, runner.Total())
	assert.False(t, cat.SchemaCached())
	for _, table := range cat.Tables() {
		for _, f := range catalog.Formats {
			assert.False(t, cat.Cached(table, f))
		}
	}
}

func TestOpen_DuplicateAndEmptyListing(t *testing.T) {
	runner := mdbtoolstest.NewRunner().
		On(mdbtoolstest.Response{Stdout: "A B A\n"}, "mdb-tables", "dup.mdb").
		On(mdbtoolstest.Response{Stdout: "\n"}, "mdb-tables", "empty.mdb")
	tools := mdbtools.New(nil, runner, nil)

	dup, err := catalog.Open(context.Background(), tools, "dup.mdb")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, dup.Tables())

	empty, err := catalog.Open(context.Background(), tools, "empty.mdb")
	require.NoError(t, err)
	assert.Empty(t, empty.Tables())
}

func TestOpen_Failures(t *testing.T) {
	tests := []struct {
		name  string
		resp  mdbtoolstest.Response
		inner errs.ErrKind
	}{
		{"tool missing", mdbtoolstest.Response{ExitCode: -1, Err: exec.ErrNotFound}, errs.ErrKindToolFailed},
		{"non-zero exit", mdbtoolstest.Response{Stderr: "Couldn't open database.", ExitCode: 1}, errs.ErrKindToolFailed},
		{"invalid utf-8", mdbtoolstest.Response{Stdout: "\xc3\x28"}, errs.ErrKindDecodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := mdbtoolstest.NewRunner().On(tt.resp, "mdb-tables", file)

			cat, err := catalog.Open(context.Background(), mdbtools.New(nil, runner, nil), file)
			require.Error(t, err)
			assert.Nil(t, cat)
			assert.True(t, errs.IsDiscoveryFailed(err))
			assert.True(t, errs.HasKind(err, tt.inner))
		})
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	runner := mdbtoolstest.NewRunner()
	_, err := catalog.Open(context.Background(), mdbtools.New(nil, runner, nil), "")
	assert.True(t, errs.IsInvalidInput(err))
	assert.Zero(t, runner.Total())
}

func TestSchema_FetchedOnce(t *testing.T) {
	runner := biblio()
	cat := open(t, runner)
	ctx := context.Background()

	first, err := cat.Schema(ctx)
	require.NoError(t, err)
	second, err := cat.Schema(ctx)
	require.NoError(t, err)

	assert.Equal(t, schemaSQL, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, runner.Calls("mdb-schema", file, "sqlite"))
	assert.True(t, cat.SchemaCached())
}

func TestData_FetchedOncePerFormat(t *testing.T) {
	runner := biblio()
	cat := open(t, runner)
	ctx := context.Background()

	csv1, err := cat.CSV(ctx, "Titles")
	require.NoError(t, err)
	assert.True(t, cat.Cached("Titles", catalog.FormatCSV))
	assert.False(t, cat.Cached("Titles", catalog.FormatSQL), "csv must not populate sql")

	csv2, err := cat.CSV(ctx, "Titles")
	require.NoError(t, err)
	assert.Equal(t, csv1, csv2)
	assert.Equal(t, titlesCSV, csv1)
	assert.Equal(t, 1, runner.Calls("mdb-export", file, "Titles"))

	sql1, err := cat.SQL(ctx, "Titles")
	require.NoError(t, err)
	sql2, err := cat.Data(ctx, "Titles", catalog.FormatSQL)
	require.NoError(t, err)
	assert.Equal(t, sql1, sql2)
	assert.Equal(t, titlesSQL, sql1)
	assert.Equal(t, 1, runner.Calls("mdb-export", "-H", "-I", "sqlite", file, "Titles"))

	// Other tables are untouched.
	assert.False(t, cat.Cached("Authors", catalog.FormatCSV))
	assert.False(t, cat.SchemaCached())
}

func TestData_EmptyOutputIsCached(t *testing.T) {
	runner := biblio().On(mdbtoolstest.Response{Stdout: ""}, "mdb-export", file, "Author")
	cat := open(t, runner)

	for i := 0; i < 2; i++ {
		out, err := cat.CSV(context.Background(), "Author")
		require.NoError(t, err)
		assert.Empty(t, out)
	}
	assert.Equal(t, 1, runner.Calls("mdb-export", file, "Author"))
}

func TestData_UnknownTable(t *testing.T) {
	runner := biblio()
	cat := open(t, runner)
	before := runner.Total()

	for _, get := range []func(context.Context, string) (string, error){cat.CSV, cat.SQL} {
		out, err := get(context.Background(), "Nope")
		require.Error(t, err)
		assert.Empty(t, out)
		assert.True(t, errs.IsUnknownTable(err))
	}

	assert.Equal(t, before, runner.Total(), "unknown tables must not reach the tools")
	assert.False(t, cat.Cached("Nope", catalog.FormatCSV))
}

func TestData_InvalidFormat(t *testing.T) {
	cat := open(t, biblio())
	_, err := cat.Data(context.Background(), "Titles", catalog.Format(7))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestData_FailureIsNotCached(t *testing.T) {
	runner := biblio().On(mdbtoolstest.Response{Stderr: "Error: Table Authors does not exist", ExitCode: 1},
		"mdb-export", file, "Authors")
	cat := open(t, runner)
	ctx := context.Background()

	_, err := cat.CSV(ctx, "Titles")
	require.NoError(t, err)

	out, err := cat.CSV(ctx, "Authors")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, errs.IsFetchFailed(err))
	assert.True(t, errs.HasKind(err, errs.ErrKindToolFailed))
	assert.Contains(t, err.Error(), "does not exist")
	assert.False(t, cat.Cached("Authors", catalog.FormatCSV))

	// The earlier success is unaffected.
	assert.True(t, cat.Cached("Titles", catalog.FormatCSV))

	// The next call goes back to the tool and caches the recovery.
	runner.On(mdbtoolstest.Response{Stdout: "Au_ID,Author\n1,\"Jacobs, Russell\"\n"}, "mdb-export", file, "Authors")
	out, err = cat.CSV(ctx, "Authors")
	require.NoError(t, err)
	assert.Contains(t, out, "Jacobs")
	assert.Equal(t, 2, runner.Calls("mdb-export", file, "Authors"))
	assert.True(t, cat.Cached("Authors", catalog.FormatCSV))
}

func TestSchema_FailureThenRetry(t *testing.T) {
	runner := biblio().On(mdbtoolstest.Response{Stdout: "\xff\xfe"}, "mdb-schema", file, "sqlite")
	cat := open(t, runner)

	_, err := cat.Schema(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsFetchFailed(err))
	assert.True(t, errs.HasKind(err, errs.ErrKindDecodeFailed))
	assert.False(t, cat.SchemaCached())

	runner.On(mdbtoolstest.Response{Stdout: schemaSQL}, "mdb-schema", file, "sqlite")
	got, err := cat.Schema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schemaSQL, got)
	assert.Equal(t, 2, runner.Calls("mdb-schema", file, "sqlite"))
}

func TestData_ConcurrentCallersShareOneFetch(t *testing.T) {
	runner := biblio()
	runner.OnCall(func(line string) {
		if strings.HasPrefix(line, "mdb-export") {
			time.Sleep(20 * time.Millisecond)
		}
	})
	cat := open(t, runner)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]string, callers)
	errList := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errList[i] = cat.SQL(context.Background(), "Titles")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errList[i])
		assert.Equal(t, titlesSQL, results[i])
	}
	assert.Equal(t, 1, runner.Calls("mdb-export", "-H", "-I", "sqlite", file, "Titles"))
}

func TestData_CallerCancelDoesNotFailSharedFetch(t *testing.T) {
	runner := biblio()
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	runner.OnCall(func(line string) {
		if strings.HasPrefix(line, "mdb-export") {
			once.Do(func() { close(entered) })
			<-release
		}
	})
	cat := open(t, runner)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cat.CSV(ctxA, "Titles")
		errA <- err
	}()
	<-entered

	type result struct {
		out string
		err error
	}
	resB := make(chan result, 1)
	go func() {
		out, err := cat.CSV(context.Background(), "Titles")
		resB <- result{out, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		require.Error(t, err)
		assert.True(t, errs.IsFetchFailed(err))
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting for the shared fetch")
	}

	close(release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, titlesCSV, b.out)
	assert.True(t, cat.Cached("Titles", catalog.FormatCSV))
	assert.Equal(t, 1, runner.Calls("mdb-export", file, "Titles"))
}

func TestData_CancelledContext(t *testing.T) {
	cat := open(t, biblio())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cat.CSV(ctx, "Titles")
	require.Error(t, err)
	assert.True(t, errs.IsFetchFailed(err))
	assert.True(t, errs.HasKind(err, errs.ErrKindTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, cat.Cached("Titles", catalog.FormatCSV))
}

func TestFormat(t *testing.T) {
	f, err := catalog.ParseFormat(" SQL ")
	require.NoError(t, err)
	assert.Equal(t, catalog.FormatSQL, f)
	assert.Equal(t, ".sql", f.Ext())
	assert.Contains(t, catalog.FormatCSV.ContentType(), "text/csv")

	_, err = catalog.ParseFormat("xml")
	assert.True(t, errs.IsInvalidInput(err))
	assert.Equal(t, "unknown", catalog.Format(9).String())
}

func TestBiblioScenario(t *testing.T) {
	ctx := context.Background()
	cat := open(t, biblio())
	assert.ElementsMatch(t, []string{"Title", "Publishers", "Authors", "Author", "Titles"}, cat.Tables())

	schema, err := cat.Schema(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(schema), 100)

	csv, err := cat.CSV(ctx, "Titles")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(csv), 100)
	assert.False(t, cat.Cached("Titles", catalog.FormatSQL))

	sql, err := cat.SQL(ctx, "Titles")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(sql), 100)
	assert.NotEqual(t, csv, sql)
}

// TestBiblioFixture runs against the real tools when both the fixture and
// mdbtools are available. The Biblio database is not shipped with the
// repository, so in a plain checkout this test skips and the fake-runner
// tests above (TestOpen_DiscoversTables, TestData_FetchedOncePerFormat and
// the rest) are the coverage of record. Drop a copy of Biblio.mdb into
// internal/catalog/testdata to exercise the real tools.
func TestBiblioFixture(t *testing.T) {
	path := filepath.Join("testdata", "Biblio.mdb")
	if _, err := os.Stat(path); err != nil {
		t.Skip("testdata/Biblio.mdb not present")
	}
	if _, err := exec.LookPath("mdb-tables"); err != nil {
		t.Skip("mdbtools not installed")
	}

	ctx := context.Background()
	cat, err := catalog.Open(ctx, mdbtools.New(nil, nil, nil), path)
	require.NoError(t, err)
	assert.ElementsMatch(t, biblioTables, cat.Tables())

	schema, err := cat.Schema(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(schema), 100)

	csv, err := cat.CSV(ctx, "Titles")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(csv), 100)
	assert.False(t, cat.Cached("Titles", catalog.FormatSQL))

	sql, err := cat.SQL(ctx, "Titles")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(sql), 100)
}
