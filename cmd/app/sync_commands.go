package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envsync/cmd/app/commands"
)

func getSyncCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-connection",
			Usage: "Verify platform credentials and store a new connection",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "project-id",
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "Project ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "environment-id",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Environment ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "platform",
					Required: true,
					Usage:    "Target platform: heroku or vercel",
				},
				&cli.StringFlag{
					Name:     "target",
					Aliases:  []string{"t"},
					Required: true,
					Usage:    "Target resource (Heroku app name or Vercel project ID)",
				},
				&cli.StringFlag{
					Name:     "credentials",
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "Credentials JSON, e.g. '{\"api_key\":\"...\"}' or '{\"token\":\"...\"}'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCreateConnection(
					ctx,
					cmd.String("project-id"),
					cmd.String("environment-id"),
					cmd.String("platform"),
					cmd.String("target"),
					cmd.String("credentials"),
				)
			},
		},
		{
			Name:  "test-connection",
			Usage: "Verify the stored credentials of a connection",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Connection ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunTestConnection(ctx, cmd.String("id"))
			},
		},
		{
			Name:  "sync-environment",
			Usage: "Enqueue a sync job for every connection of an environment",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "environment-id",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Environment ID (UUID)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunSyncEnvironment(ctx, cmd.String("environment-id"))
			},
		},
		{
			Name:  "process-jobs",
			Usage: "Claim and process one batch of due sync jobs",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunProcessJobs(ctx)
			},
		},
	}
}
