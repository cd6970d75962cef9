package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/recipe-service/internal/auth"
	"github.com/Dan9191/recipe-service/internal/config"
	"github.com/Dan9191/recipe-service/internal/handler"
	"github.com/Dan9191/recipe-service/internal/integrations/checkout"
	"github.com/Dan9191/recipe-service/internal/jobs"
	"github.com/Dan9191/recipe-service/internal/middleware"
	"github.com/Dan9191/recipe-service/internal/migrations"
	"github.com/Dan9191/recipe-service/internal/repository"
	"github.com/Dan9191/recipe-service/internal/service"
	"github.com/Dan9191/recipe-service/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage
	repo, db, err := openRepository(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize layers
	tokens := auth.NewTokenCodec(cfg.JWTAccessSecret, cfg.JWTAccessExpiresIn, cfg.JWTIssuer, logger)
	opts := []service.Option{service.WithCheckout(checkout.NewClient(cfg, logger))}
	if cfg.MailEnabled() {
		opts = append(opts, service.WithNotifier(email.NewSender(cfg, logger)))
	} else {
		logger.Info("SMTP_HOST not set, email notifications disabled")
	}
	svc := service.NewService(repo, logger, cfg, tokens, opts...)

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	h := handler.NewHandler(svc, logger, pinger)
	gate := middleware.NewGate(tokens, repo, logger)

	// Setup router
	var root http.Handler = handler.NewRouter(h, gate)
	root = middleware.CORS(cfg.CORSAllowedOrigins)(root)
	root = middleware.Logging(logger)(root)
	root = middleware.Recovery(logger)(root)

	// Background jobs
	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddReconcile(cfg.ReconcileSchedule, svc); err != nil {
		logger.Fatalf("Failed to schedule jobs: %v", err)
	}
	scheduler.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      root,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting server on %s (storage: %s)", addr, cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	scheduler.Stop(shutdownCtx)
	svc.Wait()
}

// openRepository returns the repository selected by STORAGE. The *sql.DB is
// nil for in-memory storage.
func openRepository(cfg *config.Config, logger *logrus.Logger) (repository.Repository, *sql.DB, error) {
	if cfg.Storage == config.StorageMemory {
		logger.Warn("Using in-memory storage, data will not survive a restart")
		return repository.NewMemoryRepository(), nil, nil
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewPostgresRepository(db), db, nil
}
