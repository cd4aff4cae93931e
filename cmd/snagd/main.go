package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/snagtrack/snag/pkg/api"
	"github.com/snagtrack/snag/pkg/auth"
	"github.com/snagtrack/snag/pkg/config"
	"github.com/snagtrack/snag/pkg/defects"
	"github.com/snagtrack/snag/pkg/observability"
	"github.com/snagtrack/snag/pkg/policy"
	"github.com/snagtrack/snag/pkg/projects"
	"github.com/snagtrack/snag/pkg/stats"
	"github.com/snagtrack/snag/pkg/storage"
	"github.com/snagtrack/snag/pkg/storage/postgres"
	"github.com/snagtrack/snag/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(nil)
	}

	db, err := postgres.Open(ctx, cfg.Storage.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	store := postgres.NewStore(db)
	logger.Info("database ready")

	redisClient, err := storage.NewRedisClient(ctx, cfg.Storage.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	sessions := storage.NewRedisSessionStore(redisClient)

	var blobs defects.BlobStore
	var sweepable storage.SweepableBlobStore
	switch cfg.Storage.BlobBackend {
	case "s3":
		s3Store, err := storage.NewS3BlobStore(ctx, storage.S3Config{
			Endpoint:     cfg.Storage.S3Endpoint,
			Region:       cfg.Storage.S3Region,
			Bucket:       cfg.Storage.S3Bucket,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			UsePathStyle: cfg.Storage.S3UsePathStyle,
		})
		if err != nil {
			return err
		}
		blobs, sweepable = s3Store, s3Store
	default:
		fsStore, err := storage.NewFilesystemBlobStore(cfg.Storage.FilesystemRoot)
		if err != nil {
			return err
		}
		blobs, sweepable = fsStore, fsStore
	}
	logger.WithField("backend", cfg.Storage.BlobBackend).Info("blob storage ready")

	pol := policy.Default()
	if cfg.Auth.PolicyFile != "" {
		pol, err = policy.LoadFile(cfg.Auth.PolicyFile)
		if err != nil {
			return err
		}
		logger.WithField("path", cfg.Auth.PolicyFile).Info("policy loaded from file")
	}

	userService := users.NewService(store, sessions, pol, logger)
	userService.SetSessionTTL(cfg.Auth.SessionTTL)
	if email := os.Getenv("SNAG_ADMIN_EMAIL"); email != "" {
		if err := userService.EnsureAdmin(ctx, email, os.Getenv("SNAG_ADMIN_PASSWORD")); err != nil {
			return err
		}
	}

	defectService := defects.NewService(store, blobs, pol, logger, metrics)
	defectService.SetCache(storage.NewRedisDefectCache(redisClient, storage.DefaultDefectCacheTTL))
	projectService := projects.NewService(store, logger)
	statsService := stats.NewService(store, logger)

	server := api.NewServer(api.Options{
		Logger:   logger,
		Metrics:  metrics,
		Resolver: auth.NewSessionResolver(sessions),
		Users:    users.NewHandlers(userService),
		Defects:  defects.NewHandlers(defectService),
		Projects: projects.NewHandlers(projectService),
		Stats:    stats.NewHandlers(statsService),
	})

	janitor := storage.NewJanitor(sweepable, store, store, metrics, logger)
	if err := janitor.Start(); err != nil {
		return err
	}
	defer janitor.Stop()

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux(db, redisClient, metrics),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		healthServer.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func healthMux(db *sql.DB, redisClient *redis.Client, metrics *observability.Metrics) http.Handler {
	checker := observability.NewHealthChecker(db, redisClient)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}
