package command

import (
	"context"
	"fmt"

	"github.com/koustreak/mdbread/internal/database"
	"github.com/urfave/cli/v3"
)

func (a *App) loadCommand() *cli.Command {
	return &cli.Command{
		Name:      "load",
		Usage:     "create the schema and insert the rows into PostgreSQL or MySQL",
		ArgsUsage: "<file> [table...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "key",
				Usage: "object key of the database file in object storage; replaces the file argument",
			},
			&cli.StringFlag{
				Name:  "bucket",
				Usage: "bucket holding --key (defaults to filestore.bucket)",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "target database engine (postgres, mysql)",
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "target connection string (defaults to database.dsn or MDBREAD_DATABASE_DSN)",
			},
			&cli.DurationFlag{
				Name:  "statement-timeout",
				Usage: "deadline for each statement",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dbcfg := a.cfg.DatabaseConfig()
			if d := cmd.String("driver"); d != "" {
				dbcfg.Driver = database.Driver(d)
			}
			if dsn := cmd.String("dsn"); dsn != "" {
				dbcfg.DSN = dsn
			}
			if cmd.IsSet("statement-timeout") {
				dbcfg.StatementTimeout = cmd.Duration("statement-timeout")
			}
			if err := dbcfg.Validate(); err != nil {
				return err
			}

			s, err := a.open(ctx, cmd, dbcfg.Driver.Dialect())
			if err != nil {
				return err
			}
			defer s.Close()

			db, err := a.OpenDB(ctx, dbcfg)
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := database.NewLoader(db, dbcfg.StatementTimeout, a.log.Component("loader")).Load(ctx, s.cat, s.args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "loaded %d tables (%d statements) into %s\n",
				len(report.Tables), report.Statements, dbcfg.Driver)
			return nil
		},
	}
}
