package command

import (
	"context"
	"os"

	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/koustreak/mdbread/internal/errs"
	"github.com/koustreak/mdbread/internal/filestore"
	"github.com/koustreak/mdbread/internal/mdbtools"
	"github.com/urfave/cli/v3"
)

// sourceFlags select where the database file comes from and how its SQL is
// written. Flags hold parse state, so every command gets fresh ones.
func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "key",
			Usage: "object key of the database file in object storage; replaces the file argument",
		},
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "bucket holding --key (defaults to filestore.bucket)",
		},
		&cli.StringFlag{
			Name:  "dialect",
			Usage: "SQL dialect of schema and INSERT dumps (access, sybase, oracle, postgres, mysql, sqlite)",
			Validator: func(v string) error {
				if !mdbtools.Dialect(v).Valid() {
					return errs.New(errs.ErrKindInvalidInput, "unsupported dialect: "+v)
				}
				return nil
			},
		},
	}
}

// session is one opened database file plus the positional arguments that
// follow it.
type session struct {
	cat   *catalog.Catalog
	args  []string
	store filestore.Store
	local string // staged copy of a downloaded file
}

func (s *session) Close() {
	if s.local != "" {
		_ = os.Remove(s.local)
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// open resolves the database file and opens a catalog on it. A non-empty
// dialect wins over --dialect and the config file.
func (a *App) open(ctx context.Context, cmd *cli.Command, dialect mdbtools.Dialect) (*session, error) {
	tcfg := a.cfg.ToolsConfig()
	if d := cmd.String("dialect"); d != "" {
		tcfg.Dialect = mdbtools.Dialect(d)
	}
	if dialect != "" {
		tcfg.Dialect = dialect
	}
	if err := tcfg.Validate(); err != nil {
		return nil, err
	}

	s := &session{args: cmd.Args().Slice()}
	path := ""

	if key := cmd.String("key"); key != "" {
		fscfg := a.cfg.FileStoreConfig()
		bucket, err := fscfg.Bucket(cmd.String("bucket"))
		if err != nil {
			return nil, err
		}
		store, err := a.OpenStore(ctx, fscfg)
		if err != nil {
			return nil, err
		}
		s.store = store

		local, err := filestore.Download(ctx, store, bucket, key, "")
		if err != nil {
			s.Close()
			return nil, err
		}
		s.local = local
		path = local
		a.log.DebugWith("database downloaded", map[string]interface{}{"bucket": bucket, "key": key, "path": local})
	} else {
		if len(s.args) == 0 {
			return nil, errs.New(errs.ErrKindInvalidInput, "missing database file argument")
		}
		path, s.args = s.args[0], s.args[1:]
	}

	cat, err := catalog.Open(ctx, mdbtools.New(tcfg, a.Runner, a.log.Component("mdbtools")), path)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.cat = cat
	return s, nil
}

// table returns the single table argument of a per-table command.
func (s *session) table() (string, error) {
	if len(s.args) != 1 {
		return "", errs.New(errs.ErrKindInvalidInput, "expected exactly one table argument")
	}
	return s.args[0], nil
}
