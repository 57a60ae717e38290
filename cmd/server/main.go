package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-template-platform/internal/config"
	"event-template-platform/internal/database"
	"event-template-platform/internal/dialogstore"
	"event-template-platform/internal/handlers"
	"event-template-platform/internal/logging"
	"event-template-platform/internal/middleware"
	"event-template-platform/internal/repositories"
	"event-template-platform/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Creating calls allowed per user per minute.
const (
	createLimit  = 30
	createWindow = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	checks := map[string]handlers.HealthCheck{}

	var svc services.TemplateServiceInterface
	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
	switch {
	case err == nil:
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			return err
		}
		svc = services.NewTemplateService(
			repositories.NewEventRepository(db.DB),
			repositories.NewTemplateRepository(db.DB),
			repositories.NewLinkedRepository(db.DB),
			metrics,
			logger.Named("templates"),
		)
		checks["database"] = db.PingContext
	case cfg.Server.Env == "development":
		logger.Warn("database unavailable, serving in-memory demo data", zap.Error(err))
		svc = demoService()
	default:
		return err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	store := dialogstore.New(rdb, "event-templates:", cfg.Redis.DialogTTL)
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	checks["redis"] = store.Ping

	sessionStore := middleware.NewCookieStore(cfg.Session.Secret, cfg.IsProduction())
	limiter := middleware.NewRateLimiter(createLimit, createWindow)
	defer limiter.Close()

	dialogs := handlers.NewDialogHandler(store, svc, 0, logger)
	router := handlers.NewRouter(handlers.RouterConfig{
		Documents:   handlers.NewDocumentHandler(svc, logger),
		Methods:     handlers.NewMethodHandler(svc, logger),
		Dialogs:     dialogs,
		Health:      handlers.NewHealthHandler(checks, logger),
		Auth:        middleware.NewAuthMiddleware(sessionStore, logger),
		Limiter:     limiter,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Env))
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

	logger.Info("shutting down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	dialogs.Wait()
	return nil
}
