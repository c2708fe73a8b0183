package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"listening-quiz-service/internal/config"
	"listening-quiz-service/internal/infra/memory"
	"listening-quiz-service/internal/infra/postgres"
	redisstore "listening-quiz-service/internal/infra/redis"
)

// NewSeedCmd loads a YAML catalog into Postgres, replacing the stored one.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML question catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, file, newLogger(cfg))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to the YAML catalog")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, file string, logger zerolog.Logger) error {
	questions, err := memory.NewFileCatalogLoader(file).LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if err := runMigrations(ctx, cfg, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	db, err := openBunDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.NewSeeder(db).Seed(ctx, questions); err != nil {
		return err
	}
	logger.Info().Int("questions", len(questions)).Str("file", file).Msg("catalog seeded")

	// running instances would keep indexing room cursors into the old cached list
	if err := invalidateCatalogCache(ctx, cfg, logger); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

func invalidateCatalogCache(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	if cfg.Redis.Addr == "" {
		return nil
	}
	client := newRedisClient(cfg)
	defer client.Close()

	if err := redisstore.InvalidateCatalog(ctx, client); err != nil {
		return err
	}
	logger.Info().Str("redis", cfg.Redis.Addr).Msg("cached catalog invalidated")
	return nil
}
