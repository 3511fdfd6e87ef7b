// Package command builds the mdbread command tree.
//
// Every command takes the database file as its first argument, or reads it
// from object storage when --key is given. The file is opened once per run
// through a catalog, so a command that needs several dumps fetches each one
// a single time.
package command

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/koustreak/mdbread/internal/config"
	"github.com/koustreak/mdbread/internal/database"
	"github.com/koustreak/mdbread/internal/database/mysql"
	"github.com/koustreak/mdbread/internal/database/postgres"
	"github.com/koustreak/mdbread/internal/filestore"
	"github.com/koustreak/mdbread/internal/filestore/minio"
	"github.com/koustreak/mdbread/internal/logger"
	"github.com/koustreak/mdbread/internal/mdbtools"
	"github.com/urfave/cli/v3"
)

// App holds the collaborators commands are built on. The zero value is not
// usable; call New.
type App struct {
	// Runner runs the external tools.
	Runner mdbtools.Runner

	// Stdout receives command output, Stderr receives logs.
	Stdout io.Writer
	Stderr io.Writer

	// OpenStore connects to object storage.
	OpenStore func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error)

	// OpenDB connects to the load target.
	OpenDB func(ctx context.Context, cfg *database.Config) (database.DB, error)

	cfg *config.Config
	log *logger.Logger
}

// New returns an App wired to the real tools, MinIO and the SQL drivers.
func New() *App {
	return &App{
		Runner:    &mdbtools.ExecRunner{},
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		OpenStore: openStore,
		OpenDB:    openDB,
	}
}

// Command returns the root command.
func (a *App) Command() *cli.Command {
	root := &cli.Command{
		Name:      "mdbread",
		Usage:     "read Microsoft Access database files through mdbtools",
		Writer:    a.Stdout,
		ErrWriter: a.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("MDBREAD_CONFIG"),
				),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level (debug, info, warn, error)",
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			a.tablesCommand(),
			a.schemaCommand(),
			a.dataCommand(catalog.FormatCSV, "print the rows of a table as CSV"),
			a.dataCommand(catalog.FormatSQL, "print the rows of a table as INSERT statements"),
			a.exportCommand(),
			a.loadCommand(),
			a.serveCommand(),
			a.filesCommand(),
		},
	}

	for _, cmd := range root.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}
	return root
}

// before loads the config and sets up logging for every command.
func (a *App) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
		if err := cfg.Validate(); err != nil {
			return ctx, err
		}
	}

	lcfg := cfg.LoggerConfig()
	lcfg.Output = a.Stderr
	a.log = logger.New(lcfg)
	a.cfg = cfg
	logger.SetGlobal(a.log)

	if cfg.Source != "" {
		a.log.DebugWith("config loaded", map[string]interface{}{"file": cfg.Source})
	}
	return a.log.WithContext(ctx), nil
}

func openStore(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	d, err := minio.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func openDB(ctx context.Context, cfg *database.Config) (database.DB, error) {
	if cfg.Driver == database.DriverMySQL {
		d, err := mysql.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	d, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}
