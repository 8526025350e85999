package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/phiguard/cmd/app/commands"
	"github.com/allisson/phiguard/internal/app"
	"github.com/allisson/phiguard/internal/config"
	cryptoService "github.com/allisson/phiguard/internal/crypto/service"
	keysUsecase "github.com/allisson/phiguard/internal/keys/usecase"
)

// withKeyManager loads configuration, builds a container and runs fn with its key manager.
func withKeyManager(
	ctx context.Context,
	fn func(container *app.Container, keyManager keysUsecase.KeyManager) error,
) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)
	defer func() { _ = container.Shutdown(ctx) }()

	keyManager, err := container.KeyManager()
	if err != nil {
		return err
	}
	return fn(container, keyManager)
}

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-master-key",
			Usage: "Generate a 32-byte master key for wrapping data keys at rest",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI used to wrap the master key (omit to print a local base64key:// URI)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateMasterKey(
					ctx,
					container.KMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-key-uri"),
				)
			},
		},
		{
			Name:  "generate-key",
			Usage: "Generate a data key (active when the store has none)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyManager(ctx, func(container *app.Container, keyManager keysUsecase.KeyManager) error {
					return commands.RunGenerateKey(ctx, keyManager, container.Logger(), commands.DefaultIO().Writer)
				})
			},
		},
		{
			Name:  "rotate-key",
			Usage: "Generate a new active data key and retire the current one",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "scope",
					Aliases: []string{"s"},
					Value:   "",
					Usage:   "Scope recorded on the new key (e.g. a tenant or region)",
				},
				&cli.BoolFlag{
					Name:  "if-needed",
					Value: false,
					Usage: "Only rotate when the active key is older than KEY_ROTATION_INTERVAL_DAYS",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyManager(ctx, func(container *app.Container, keyManager keysUsecase.KeyManager) error {
					return commands.RunRotateKey(
						ctx,
						keyManager,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("scope"),
						cmd.Bool("if-needed"),
					)
				})
			},
		},
		{
			Name:  "cleanup-keys",
			Usage: "Purge retired data keys past the retention period",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "retention-days",
					Aliases: []string{"d"},
					Value:   -1,
					Usage:   "Retention period in days (defaults to KEY_RETENTION_DAYS)",
				},
				&cli.BoolFlag{
					Name:    "dry-run",
					Aliases: []string{"n"},
					Value:   false,
					Usage:   "List the keys that would be purged without deleting them",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyManager(ctx, func(container *app.Container, keyManager keysUsecase.KeyManager) error {
					retentionDays := int(cmd.Int("retention-days"))
					if retentionDays < 0 {
						retentionDays = container.Config().KeyRetentionDays
					}
					return commands.RunCleanupKeys(
						ctx,
						keyManager,
						container.Logger(),
						commands.DefaultIO().Writer,
						retentionDays,
						cmd.Bool("dry-run"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "key-stats",
			Usage: "Show key manager statistics",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withKeyManager(ctx, func(container *app.Container, keyManager keysUsecase.KeyManager) error {
					return commands.RunKeyStats(ctx, keyManager, commands.DefaultIO().Writer, cmd.String("format"))
				})
			},
		},
	}
}
