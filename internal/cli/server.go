package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"listening-quiz-service/internal/app"
	"listening-quiz-service/internal/config"
	"listening-quiz-service/internal/domain"
	"listening-quiz-service/internal/infra/memory"
	pgcatalog "listening-quiz-service/internal/infra/postgres"
	redisstore "listening-quiz-service/internal/infra/redis"
	transport "listening-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.CatalogLoader
	switch {
	case pool != nil:
		loader = pgcatalog.NewCatalogLoader(pool)
	case cfg.Catalog.File != "":
		loader = memory.NewFileCatalogLoader(cfg.Catalog.File)
	default:
		logger.Warn().Msg("no catalog source configured, serving the built-in sample")
		loader = memory.NewStaticCatalogLoader(sampleQuestions())
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.Catalog
	if redisClient != nil {
		catalog = redisstore.NewCatalogCache(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalogCache(loader, catalogTTL)
	}

	var store app.RoomStore
	if redisClient != nil {
		store = redisstore.NewStore(redisClient)
	} else {
		store = memory.NewStore()
	}

	hub := memory.NewHub()
	var broadcaster app.Broadcaster = hub
	var relay *redisstore.Relay
	if redisClient != nil && cfg.Redis.PubSub {
		relay = redisstore.NewRelay(redisClient, hub, logger)
		broadcaster = relay
	}

	service := app.NewService(store, catalog, broadcaster, settings, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, hub, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info().Str("addr", server.Addr).Bool("redis", redisClient != nil).Bool("postgres", pool != nil).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		group.Go(func() error {
			return relay.Run(gctx)
		})
	}
	group.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// sampleQuestions lets the service run without any catalog source.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:               "q1",
			Difficulty:       1,
			QuestionURL:      "/audio/q1_question.mp3",
			QuestionDuration: 30.5,
			OptionURLs:       []string{"/audio/q1_A.mp3", "/audio/q1_B.mp3", "/audio/q1_C.mp3", "/audio/q1_D.mp3"},
			OptionDurations:  []float64{5.6, 5, 4.9, 5.3},
			CorrectIndex:     3,
			AnswerURL:        "/audio/q1_reponse.mp3",
		},
	}
}
