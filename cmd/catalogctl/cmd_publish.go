package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	pgsource "unimatch/internal/catalog/source/postgres"
	"unimatch/internal/catalog/source/versionwatch"
	"unimatch/internal/platform/config"
	"unimatch/internal/platform/redis"
	"unimatch/pkg/platform/sentinel"
)

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <catalog.yaml>",
		Short: "Publish a catalog file as a new version in Postgres",
		Long: `Validate a catalog file and store it in Postgres as a new, immutable
version. Servers reading from Postgres pick it up on their next reload.

With a Redis URL the version pointer is moved too, so every server polling
it reloads within one poll interval.`,
		Args: cobra.ExactArgs(1),
		RunE: runPublish,
	}
	cmd.Flags().String("database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	cmd.Flags().String("redis-url", os.Getenv("REDIS_URL"), "Redis URL for the version pointer (optional)")
	cmd.Flags().String("version-key", "unimatch:catalog:version", "Redis key holding the published version")
	cmd.Flags().Bool("allow-warnings", true, "Publish even when resolution reports warnings")
	return cmd
}

func runPublish(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	dsn, _ := flags.GetString("database-url")
	redisURL, _ := flags.GetString("redis-url")
	versionKey, _ := flags.GetString("version-key")
	allowWarnings, _ := flags.GetBool("allow-warnings")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if dsn == "" {
		return errors.New("--database-url or DATABASE_URL is required")
	}

	_, resolved, snap, err := loadFile(ctx, args[0])
	if err != nil {
		return &RejectedError{Message: err.Error()}
	}
	if n := len(resolved.Resolution.Warnings); n > 0 {
		printWarnings(out, resolved.Resolution.Warnings)
		if !allowWarnings {
			return &RejectedError{Message: fmt.Sprintf("%d resolution warning(s)", n)}
		}
	}

	pool, err := pgsource.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	src := pgsource.New(pool)
	if err := src.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := src.Publish(ctx, snap); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return &RejectedError{Message: fmt.Sprintf("version %s is already published; bump the version", snap.Version)}
		}
		return err
	}
	color.New(color.FgGreen).Fprintf(out, "published catalog %s (%d offerings)\n", snap.Version, len(resolved.Offerings()))

	if redisURL == "" {
		return nil
	}
	rdb, err := redis.New(ctx, config.RedisConfig{URL: redisURL})
	if err != nil {
		return err
	}
	defer rdb.Close()
	if err := versionwatch.SetVersion(ctx, rdb, versionKey, snap.Version); err != nil {
		return err
	}
	fmt.Fprintf(out, "version pointer %s -> %s\n", versionKey, snap.Version)
	return nil
}
