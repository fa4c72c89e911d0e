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

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jlebervet/mail-manager/internal/api"
	"github.com/jlebervet/mail-manager/internal/config"
	"github.com/jlebervet/mail-manager/internal/database"
	applogger "github.com/jlebervet/mail-manager/internal/logger"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
	"github.com/jlebervet/mail-manager/internal/services"
	"github.com/jlebervet/mail-manager/internal/smtp"
	"github.com/jlebervet/mail-manager/internal/websocket"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadWithValidation()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := applogger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting mail register server")
	cfg.LogConfig(logger)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Error("database migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	router := api.NewRouter(&api.RouterConfig{
		DB:     db,
		Config: cfg,
		Hub:    hub,
		Logger: logger,
	})

	// SMTP intake registers inbound email as incoming mail items
	if cfg.SMTPIntakeEnabled {
		accountRepo := repository.NewAccountRepository(db)
		intakeAccount, err := ensureIntakeAccount(context.Background(), accountRepo, cfg.SMTPDomain)
		if err != nil {
			logger.Error("failed to provision intake account", slog.Any("error", err))
			os.Exit(1)
		}

		serviceRepo := repository.NewServiceRepository(db)
		correspondentRepo := repository.NewCorrespondentRepository(db)
		mailRepo := repository.NewMailRepository(db)
		refs := services.NewReferenceGenerator(mailRepo)
		mailService := services.NewMailService(mailRepo, correspondentRepo, serviceRepo, accountRepo, refs, hub, logger)

		backend := smtp.NewBackend(&smtp.BackendConfig{
			MailService:    mailService,
			Correspondents: correspondentRepo,
			Services:       serviceRepo,
			IntakeAccount:  intakeAccount,
			Domain:         cfg.SMTPDomain,
			Logger:         logger,
		})
		smtpServer := smtp.NewSecureServer(backend, &smtp.ServerConfig{
			Addr:   fmt.Sprintf(":%d", cfg.SMTPPort),
			Domain: cfg.SMTPDomain,
		})

		go func() {
			logger.Info("SMTP intake listening", slog.String("addr", smtpServer.Addr))
			if err := smtpServer.ListenAndServe(); err != nil {
				logger.Error("SMTP server stopped", slog.Any("error", err))
			}
		}()
		defer smtpServer.Close()
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("API listening", slog.String("addr", addr))
		if err := router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server stopped", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := router.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

// ensureIntakeAccount returns the system account that inbound email is
// attributed to, creating it on first start
func ensureIntakeAccount(ctx context.Context, accounts repository.AccountRepository, domain string) (*models.Account, error) {
	email := "intake@" + domain
	account, err := accounts.GetByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	account = &models.Account{
		ID:    uuid.New().String(),
		Email: email,
		Name:  "Email Intake",
		Role:  models.RoleUser,
	}
	if err := accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return accounts.GetByEmail(ctx, email)
		}
		return nil, err
	}
	return account, nil
}
