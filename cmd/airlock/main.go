package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"ContentAirlock/internal/app"
	"ContentAirlock/internal/config"
	"ContentAirlock/internal/logging"
)

func main() {
	cmd := &cli.Command{
		Name:  "airlock",
		Usage: "Ingest technical articles from RSS feeds, an email inbox, or single URLs into a markdown content store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("AIRLOCK_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Override the content store root directory",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a single article URL",
				ArgsUsage: "<url>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					url := cmd.Args().First()
					if url == "" {
						return fmt.Errorf("url argument is required")
					}
					application, err := buildApp(cmd)
					if err != nil {
						return err
					}
					return application.IngestURL(ctx, url)
				},
			},
			{
				Name:  "poll",
				Usage: "Poll the configured RSS feeds for recent articles",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Report what would be ingested without ingesting"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					application, err := buildApp(cmd)
					if err != nil {
						return err
					}
					return application.PollFeeds(ctx, cmd.Bool("dry-run"))
				},
			},
			{
				Name:  "inbox",
				Usage: "Process unread inbox messages for article URLs",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Report what would be ingested without ingesting or acknowledging"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					application, err := buildApp(cmd)
					if err != nil {
						return err
					}
					return application.ProcessInbox(ctx, cmd.Bool("dry-run"))
				},
			},
			{
				Name:  "bundle",
				Usage: "Bundle recent records into per-category digests",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Bundle a single category (default: all)"},
					&cli.IntFlag{Name: "days", Usage: "Include records from the last N days"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					application, err := buildApp(cmd)
					if err != nil {
						return err
					}
					return application.BundleDigests(ctx, cmd.String("category"), int(cmd.Int("days")))
				},
			},
			{
				Name:  "reindex",
				Usage: "Rebuild the sqlite membership index from the record files",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					application, err := buildApp(cmd)
					if err != nil {
						return err
					}
					return application.Reindex(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logging.New("info").Error("airlock failed", "error", err)
		os.Exit(1)
	}
}

// buildApp resolves configuration once per command; flags beat file values.
func buildApp(cmd *cli.Command) (*app.Application, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := cmd.String("data-dir"); dir != "" {
		cfg.Store.Root = dir
	}
	return app.New(cfg, logging.New(cfg.Logging.Level)), nil
}
