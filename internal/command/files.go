package command

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/koustreak/mdbread/internal/filestore"
	"github.com/urfave/cli/v3"
)

func (a *App) filesCommand() *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "list the database files kept in a bucket",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "bucket",
				Usage: "bucket to list (defaults to filestore.bucket)",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "only list keys under this prefix",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fscfg := a.cfg.FileStoreConfig()
			bucket, err := fscfg.Bucket(cmd.String("bucket"))
			if err != nil {
				return err
			}

			store, err := a.OpenStore(ctx, fscfg)
			if err != nil {
				return err
			}
			defer store.Close()

			dbs, err := filestore.ListDatabases(ctx, store, bucket, cmd.String("prefix"))
			if err != nil {
				return err
			}
			w := cmd.Root().Writer
			for _, obj := range dbs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", obj.Key, humanize.Bytes(uint64(obj.Size)), humanize.Time(obj.LastModified))
			}
			return nil
		},
	}
}
