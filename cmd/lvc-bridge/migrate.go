package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/lvc-bridge/internal/config"
	"github.com/morezero/lvc-bridge/pkg/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the topology snapshot schema (requires DATABASE_URL)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
					migrationSQL, err := db.LoadMigrationFiles(cfg.MigrationPath)
					if err != nil {
						return fmt.Errorf("load migrations: %w", err)
					}
					if err := db.RunMigrations(ctx, pool, migrationSQL); err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration file(s).\n", len(migrationSQL))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withPool(cmd, func(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error {
					applied, files, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
					if err != nil {
						return err
					}
					state := "pending"
					if applied {
						state = "applied"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Schema %s (%d migration file(s)).\n", state, files)
					if !applied {
						return nil
					}
					latest, err := db.NewRepository(pool).LatestTopology(ctx)
					if err != nil {
						return err
					}
					if latest == nil {
						fmt.Fprintln(cmd.OutOrStdout(), "No topology snapshots stored.")
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Latest topology revision %d from %s at %s.\n",
						latest.Revision, latest.Source, latest.Created.Format(time.RFC3339))
					return nil
				})
			},
		},
	)
	return cmd
}

func withPool(cmd *cobra.Command, fn func(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupCLILogging(cmd, cfg.LogLevel)
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool, cfg)
}
