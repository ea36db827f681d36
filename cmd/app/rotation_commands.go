package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/envsync/cmd/app/commands"
)

func getRotationCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "enable-rotation",
			Usage: "Turn on scheduled rotation for a secret variable",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "environment-id",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Environment ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "key",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Variable key",
				},
				&cli.IntFlag{
					Name:     "interval-days",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Rotation interval in days",
				},
				&cli.StringFlag{
					Name:    "provider",
					Aliases: []string{"p"},
					Value:   "internal",
					Usage:   "Rotation provider generating replacement values",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunEnableRotation(
					ctx,
					cmd.String("environment-id"),
					cmd.String("key"),
					int(cmd.Int("interval-days")),
					cmd.String("provider"),
				)
			},
		},
		{
			Name:  "disable-rotation",
			Usage: "Clear the rotation policy of a variable",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "environment-id",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Environment ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "key",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Variable key",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunDisableRotation(ctx, cmd.String("environment-id"), cmd.String("key"))
			},
		},
		{
			Name:  "rotate",
			Usage: "Rotate one variable on demand",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "environment-id",
					Aliases:  []string{"e"},
					Required: true,
					Usage:    "Environment ID (UUID)",
				},
				&cli.StringFlag{
					Name:     "key",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Variable key",
				},
				&cli.StringFlag{
					Name:    "actor",
					Aliases: []string{"a"},
					Value:   "cli",
					Usage:   "Actor recorded in version history",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunRotate(
					ctx,
					cmd.String("environment-id"),
					cmd.String("key"),
					cmd.String("actor"),
				)
			},
		},
		{
			Name:  "rotate-due",
			Usage: "Rotate every variable whose next-due time has passed",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunRotateDue(ctx)
			},
		},
		{
			Name:  "process-retries",
			Usage: "Re-run rotations whose retry delay has elapsed",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunProcessRetries(ctx)
			},
		},
	}
}
