package api

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/caltrain-transit/railfeed/pkg/config"
	"github.com/caltrain-transit/railfeed/pkg/kvstore"
)

// RegisterCLI wires the read API up as a CLI subcommand.
func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the read-only schedule/meta/realtime API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "Path to the YAML config file",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config"))
					if err != nil {
						return err
					}

					client, err := kvstore.Connect(context.Background(), cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
					if err != nil {
						return err
					}

					return Listen(kvstore.NewRedisStore(client), c.String("listen"))
				},
			},
		},
	}
}
