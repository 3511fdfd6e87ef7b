package command

import (
	"context"

	"github.com/koustreak/mdbread/internal/server"
	"github.com/urfave/cli/v3"
)

func (a *App) serveCommand() *cli.Command {
	flags := append(sourceFlags(),
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address (defaults to server.addr)",
		},
	)

	return &cli.Command{
		Name:      "serve",
		Usage:     "serve the schema and table dumps over HTTP",
		ArgsUsage: "<file>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			scfg := a.cfg.ServerConfig()
			if addr := cmd.String("addr"); addr != "" {
				scfg.Addr = addr
			}
			if err := scfg.Validate(); err != nil {
				return err
			}

			s, err := a.open(ctx, cmd, "")
			if err != nil {
				return err
			}
			defer s.Close()

			return server.New(scfg, s.cat, a.log.Component("server")).Run(ctx)
		},
	}
}
