package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"unimatch/internal/catalog"
	filesource "unimatch/internal/catalog/source/file"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Inspect, try out and publish unimatch program catalogs",
		Long: `catalogctl works with catalog snapshot files.

It validates a YAML catalog, evaluates a candidate against it without running
the server, and publishes it as a new version to Postgres.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newPublishCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// loadFile parses path and resolves it in a private registry, so semantic
// problems surface before anything is published.
func loadFile(ctx context.Context, path string) (*catalog.Registry, *catalog.Resolved, catalog.Snapshot, error) {
	src := filesource.New(path)
	snap, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, catalog.Snapshot{}, fmt.Errorf("loading %s: %w", path, err)
	}
	registry := catalog.NewRegistry(catalog.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	resolved, err := registry.Load(ctx, snap)
	if err != nil {
		return nil, nil, catalog.Snapshot{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	return registry, resolved, snap, nil
}
