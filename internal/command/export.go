package command

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/koustreak/mdbread/internal/catalog"
	"github.com/koustreak/mdbread/internal/export"
	"github.com/urfave/cli/v3"
)

func (a *App) exportCommand() *cli.Command {
	flags := append(sourceFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "local directory to write dumps into",
			Value:   "export",
		},
		&cli.StringFlag{
			Name:  "to-bucket",
			Usage: "upload dumps to this bucket instead of a local directory",
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "key prefix for uploaded dumps (defaults to filestore.prefix)",
		},
		&cli.DurationFlag{
			Name:  "link-ttl",
			Usage: "print presigned download links valid for this long instead of keys",
		},
		&cli.StringSliceFlag{
			Name:  "format",
			Usage: "per-table formats to write (csv, sql); repeatable",
		},
		&cli.BoolFlag{
			Name:  "no-schema",
			Usage: "leave schema.sql out",
		},
	)

	return &cli.Command{
		Name:      "export",
		Usage:     "write schema and table dumps to a directory or a bucket",
		ArgsUsage: "<file> [table...]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := export.Options{SkipSchema: cmd.Bool("no-schema")}
			for _, name := range cmd.StringSlice("format") {
				f, err := catalog.ParseFormat(name)
				if err != nil {
					return err
				}
				opts.Formats = append(opts.Formats, f)
			}

			s, err := a.open(ctx, cmd, "")
			if err != nil {
				return err
			}
			defer s.Close()
			opts.Tables = s.args

			sink, err := a.sink(ctx, cmd, s)
			if err != nil {
				return err
			}

			report, err := export.New(s.cat, sink, a.log.Component("export")).Run(ctx, opts)
			if report != nil {
				w := cmd.Root().Writer
				for _, f := range report.Files {
					fmt.Fprintf(w, "%s\t%s\n", f.Location, humanize.Bytes(uint64(f.Bytes)))
				}
			}
			return err
		},
	}
}

// sink picks the export destination. An upload reuses the store the
// database was downloaded from, if any.
func (a *App) sink(ctx context.Context, cmd *cli.Command, s *session) (export.Sink, error) {
	bucket := cmd.String("to-bucket")
	if bucket == "" {
		return &export.DirSink{Dir: cmd.String("out")}, nil
	}

	if s.store == nil {
		store, err := a.OpenStore(ctx, a.cfg.FileStoreConfig())
		if err != nil {
			return nil, err
		}
		s.store = store
	}

	prefix := cmd.String("prefix")
	if prefix == "" {
		prefix = a.cfg.FileStore.Prefix
	}
	return &export.StoreSink{
		Store:   s.store,
		Bucket:  bucket,
		Prefix:  prefix,
		LinkTTL: cmd.Duration("link-ttl"),
	}, nil
}
