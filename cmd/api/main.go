package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"example.com/feedboard/internal/api"
	"example.com/feedboard/internal/auth"
	"example.com/feedboard/internal/config"
	"example.com/feedboard/internal/domain"
	"example.com/feedboard/internal/live"
	"example.com/feedboard/internal/logger"
	"example.com/feedboard/internal/outbox"
	persistence "example.com/feedboard/internal/persistence/postgres"
	"example.com/feedboard/internal/roster"
	httptransport "example.com/feedboard/internal/transport/http"
	"example.com/feedboard/migrations"
	"example.com/feedboard/web"
)

func main() {
	log := logger.New("api")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := migrate(cfg.PostgresURL); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
	defer redisClient.Close()

	repo := persistence.NewRepository(pool)
	adminRoster := roster.NewCache(redisClient, roster.NewStore(pool), cfg.AdminCacheTTL, log)

	service := domain.NewService(repo, cfg.AppVersion, cfg.SeedContent)
	if _, replay, err := service.EnsureSeed(ctx); err != nil {
		log.Error().Err(err).Msg("seed entry write failed")
	} else if !replay {
		log.Info().Msg("seed entry written")
	}

	producer := outbox.NewProducer(cfg.KafkaBrokers, cfg.FeedTopic)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger.New("outbox"))
	go dispatcher.Start(ctx)

	hub := live.NewHub()
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.RelayGroupID,
		Topic:           cfg.FeedTopic,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		ReadLagInterval: -1,
	})
	relay := live.NewRelay(reader, hub, logger.New("relay"))
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		defer reader.Close()
		if err := relay.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("relay stopped")
		}
	}()

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, SessionTTL: cfg.SessionTTL}

	handler := api.NewHandler(service, adminRoster, hub, authCfg, cfg.AppVersion, log)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", web.Handler())

	authMiddleware := auth.NewMiddleware(authCfg, func(r *http.Request) bool {
		switch r.URL.Path {
		case "/healthz", "/metrics", "/v1/session", "/v1/version":
			return true
		}
		// Everything outside /v1 is the embedded SPA.
		return !isAPIPath(r.URL.Path)
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:           cfg.HTTPAddress,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		// WriteTimeout stays zero: /v1/feed/stream holds connections open.
		IdleTimeout: 60 * time.Second,
	}, authMiddleware.Wrap(requestLogger(log, mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("address", cfg.HTTPAddress).Msg("feedboard listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	dispatcher.Wait()
	<-relayDone
}

// migrate applies the embedded schema using database/sql, which goose expects.
func migrate(postgresURL string) error {
	db, err := sql.Open("pgx", postgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.Migrate(db)
}

func isAPIPath(path string) bool {
	return len(path) >= 4 && path[:4] == "/v1/"
}

func requestLogger(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r)
	})
}
