// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"agridoctor-back/internal/auth"
	"agridoctor-back/internal/cache"
	"agridoctor-back/internal/config"
	"agridoctor-back/internal/database"
	"agridoctor-back/internal/events"
	"agridoctor-back/internal/handlers"
	"agridoctor-back/internal/metrics"
	"agridoctor-back/internal/ml"
	"agridoctor-back/internal/prediction"
	"agridoctor-back/internal/storage"
	"agridoctor-back/internal/telemetry"
)

const serviceName = "agridoctor-back"

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracer(serviceName, "1.0.0")
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownTracer(ctx)
		}()
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tabular, err := ml.LoadTabularModel(cfg.CropModelPath, cfg.FertilizerModelPath)
	if err != nil {
		return fmt.Errorf("load tabular model: %w", err)
	}

	deps := prediction.Deps{
		Tabular:      tabular,
		Image:        loadImageModel(ctx, cfg),
		Store:        store,
		Metrics:      metrics.New(prometheus.DefaultRegisterer),
		MaxImageSize: cfg.MaxImageSize,
	}

	if cfg.MinIOEndpoint != "" {
		archive, err := storage.NewMinIOClient(ctx, storage.Options{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			logger.Warn("MinIO unavailable, leaf images will not be archived", "error", err)
		} else {
			deps.Archive = archive
			logger.Info("leaf image archive ready", "bucket", cfg.MinIOBucket)
		}
	}

	publisher := events.NewPublisher(cfg.NATSURL)
	defer publisher.Close()
	deps.Events = publisher

	limiter := &handlers.LoginLimiter{
		Store:       openLockoutStore(ctx, cfg),
		MaxAttempts: cfg.LoginMaxAttempts,
		Window:      cfg.LoginLockout,
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	router := handlers.NewRouter(handlers.RouterDeps{
		Store:       store,
		Tokens:      tokens,
		Predictions: prediction.NewService(deps),
		Limiter:     limiter,
		Metrics:     deps.Metrics,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Cookie:      handlers.CookieConfig{Secure: cfg.Env != "dev", MaxAge: cfg.JWTTTL},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (database.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		return database.NewMemory(), nil
	}

	db, err := database.InitDB(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return database.NewGormStore(db), nil
}

// loadImageModel probes the model server. The API keeps running without disease
// detection when the probe fails.
func loadImageModel(ctx context.Context, cfg config.Config) ml.ImageModel {
	if cfg.DiseaseModelURL == "" {
		slog.Warn("DISEASE_MODEL_URL not set, disease detection disabled")
		return nil
	}

	model := ml.NewTFServingModel(cfg.DiseaseModelURL, cfg.DiseaseModelName, cfg.DiseaseModelTimeout, ml.LeafClassifierSpec)
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := model.Ready(probeCtx); err != nil {
		slog.Warn("disease model not available, disease detection disabled", "url", cfg.DiseaseModelURL, "error", err)
		return nil
	}
	slog.Info("disease model ready", "url", cfg.DiseaseModelURL, "model", cfg.DiseaseModelName)
	return model
}

func openLockoutStore(ctx context.Context, cfg config.Config) cache.LockoutStore {
	if cfg.RedisURL == "" {
		return cache.NewMemoryLockoutStore()
	}
	client, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		slog.Warn("Redis unavailable, using in-process login lockout", "error", err)
		return cache.NewMemoryLockoutStore()
	}
	return cache.NewRedisLockoutStore(client)
}
