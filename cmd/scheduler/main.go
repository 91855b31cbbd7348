package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/auth"
	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/notify"
	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/internal/service"
	"github.com/segyhp/loan-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("Starting loan scheduler...")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.SMTPEnabled() {
		sender = notify.NewSMTPSender(cfg.SMTP, log)
	}

	// The scheduler never reads loan views, so it runs without the cache
	loanService, err := service.NewLoanService(repository.NewLoanRepository(db), nil, sender, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize loan service: %v", err)
	}
	authService, err := service.NewAuthService(repository.NewUserRepository(db), auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL), sender, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location()))

	if err := setupCronJobs(c, cfg, loanService, authService, log); err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}

	c.Start()
	log.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, loans *service.LoanService, users *service.AuthService, log *logrus.Logger) error {
	// Daily reminder for installments falling due within the configured window
	_, err := c.AddFunc(cfg.Scheduler.ReminderSpec, func() {
		sent, err := loans.SendDueReminders(context.Background())
		entry := log.WithFields(logrus.Fields{"job": "due_reminders", "sent": sent})
		if err != nil {
			entry.WithError(err).Error("due reminder job finished with errors")
			return
		}
		entry.Info("due reminder job finished")
	})
	if err != nil {
		return err
	}

	// Periodic purge of OTPs that can no longer be used
	_, err = c.AddFunc(cfg.Scheduler.OTPPurgeSpec, func() {
		cleared, err := users.PurgeExpiredOTPs(context.Background())
		if err != nil {
			log.WithError(err).WithField("job", "otp_purge").Error("otp purge failed")
			return
		}
		log.WithFields(logrus.Fields{"job": "otp_purge", "cleared": cleared}).Info("otp purge finished")
	})
	if err != nil {
		return err
	}

	log.Info("Cron jobs scheduled successfully")
	return nil
}
