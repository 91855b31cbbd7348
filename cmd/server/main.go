package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/auth"
	"github.com/segyhp/loan-engine/internal/cache"
	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/handler"
	"github.com/segyhp/loan-engine/internal/notify"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/service"
	"github.com/segyhp/loan-engine/pkg/logger"
	"github.com/segyhp/loan-engine/pkg/response"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := cache.OpenRedis(context.Background(), cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	sender, err := newSender(cfg, log)
	if err != nil {
		log.Fatalf("Failed to configure email: %v", err)
	}

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	loanService, err := service.NewLoanService(loanRepo, cache.NewRedisLoanCache(redisClient, cfg.Redis.CacheTTL), sender, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize loan service: %v", err)
	}
	authService, err := service.NewAuthService(userRepo, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL), sender, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}

	router := handler.NewRouter(
		handler.NewLoanHandler(loanService),
		handler.NewAuthHandler(authService),
		handler.NewHealthHandler(db, redisClient, cfg.Health.Timeout),
	)
	router.Use(response.LoggingMiddleware(log), response.CORSMiddleware)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

// newSender delivers over SMTP when a host is configured. Outside production a
// missing host falls back to writing messages to the log.
func newSender(cfg *config.Config, log logrus.FieldLogger) (notify.Sender, error) {
	if cfg.SMTPEnabled() {
		return notify.NewSMTPSender(cfg.SMTP, log), nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("SMTP_HOST is required in production")
	}

	log.Warn("SMTP_HOST not set, emails will only be logged")
	return notify.NewLogSender(log), nil
}
