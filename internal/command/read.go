package command

import (
	"context"
	"fmt"
	"io"

	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/urfave/cli/v3"
)

func (a *App) tablesCommand() *cli.Command {
	return &cli.Command{
		Name:      "tables",
		Usage:     "list the tables of a database file",
		ArgsUsage: "<file>",
		Flags:     sourceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := a.open(ctx, cmd, "")
			if err != nil {
				return err
			}
			defer s.Close()

			w := cmd.Root().Writer
			for _, t := range s.cat.Tables() {
				fmt.Fprintln(w, t)
			}
			return nil
		},
	}
}

func (a *App) schemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "print the schema of a database file",
		ArgsUsage: "<file>",
		Flags:     sourceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := a.open(ctx, cmd, "")
			if err != nil {
				return err
			}
			defer s.Close()

			schema, err := s.cat.Schema(ctx)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.Root().Writer, schema)
			return err
		},
	}
}

func (a *App) dataCommand(f catalog.Format, usage string) *cli.Command {
	return &cli.Command{
		Name:      f.String(),
		Usage:     usage,
		ArgsUsage: "<file> <table>",
		Flags:     sourceFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := a.open(ctx, cmd, "")
			if err != nil {
				return err
			}
			defer s.Close()

			table, err := s.table()
			if err != nil {
				return err
			}
			data, err := s.cat.Data(ctx, table, f)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.Root().Writer, data)
			return err
		},
	}
}
