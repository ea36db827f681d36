package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envsync/cmd/app/commands"
	"github.com/allisson/envsync/internal/app"
	"github.com/allisson/envsync/internal/config"
	cryptoService "github.com/allisson/envsync/internal/crypto/service"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the worker: sync dispatcher, rotation scanner and health/metrics servers",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
		{
			Name:  "create-master-key",
			Usage: "Generate a new master key for envelope encryption",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "kms-key-uri",
					Aliases: []string{"k"},
					Value:   "",
					Usage:   "KMS key URI used to wrap the generated key (e.g., gcpkms://..., base64key://...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateMasterKey(
					ctx,
					cryptoService.NewKMSService(),
					os.Stdout,
					cmd.String("kms-key-uri"),
				)
			},
		},
	}
}
