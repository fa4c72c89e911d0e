package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/jlebervet/mail-manager/internal/api/handlers"
	"github.com/jlebervet/mail-manager/internal/api/middleware"
	"github.com/jlebervet/mail-manager/internal/auth"
	"github.com/jlebervet/mail-manager/internal/config"
	"github.com/jlebervet/mail-manager/internal/repository"
	"github.com/jlebervet/mail-manager/internal/services"
	"github.com/jlebervet/mail-manager/internal/websocket"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB     *gorm.DB
	Config *config.Config
	Hub    *websocket.Hub
	Logger *slog.Logger
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware order: recover first, then hardening, then throttling,
	// then logging
	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(cfg.Config.AllowedOrigins, cfg.Config.IsProduction()))
	e.Use(middleware.RateLimiter(cfg.Config.RateLimitRequests, cfg.Config.RateLimitBurst, cfg.Logger))
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Repositories
	accountRepo := repository.NewAccountRepository(cfg.DB)
	serviceRepo := repository.NewServiceRepository(cfg.DB)
	correspondentRepo := repository.NewCorrespondentRepository(cfg.DB)
	mailRepo := repository.NewMailRepository(cfg.DB)

	// Auth plumbing: provider assertions first, then local sessions
	reconciler := auth.NewReconciler(accountRepo, cfg.Logger)
	tokens := auth.NewTokenManager(cfg.Config.JWTSecret, cfg.Config.SessionTTL)
	strategies := []auth.Strategy{}
	if cfg.Config.ProviderSecret != "" {
		verifier := auth.NewSharedKeyVerifier(cfg.Config.ProviderSecret, cfg.Config.ProviderIssuer, cfg.Config.ProviderAudience)
		strategies = append(strategies, auth.ExternalStrategy(verifier, reconciler))
	}
	strategies = append(strategies, auth.SessionStrategy(tokens, accountRepo))
	strategy := auth.Chain(strategies...)

	// Services
	refs := services.NewReferenceGenerator(mailRepo)
	var events services.EventPublisher
	if cfg.Hub != nil {
		events = cfg.Hub
	}
	mailService := services.NewMailService(mailRepo, correspondentRepo, serviceRepo, accountRepo, refs, events, cfg.Logger)
	archival := services.NewArchivalService(serviceRepo, mailRepo, cfg.Logger)
	stats := services.NewStatsService(mailRepo)
	importer := services.NewImportService(mailRepo, correspondentRepo, serviceRepo, refs, cfg.Logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB)
	authHandler := handlers.NewAuthHandler(reconciler, tokens, accountRepo)
	serviceHandler := handlers.NewServiceHandler(serviceRepo, archival)
	correspondentHandler := handlers.NewCorrespondentHandler(correspondentRepo)
	mailHandler := handlers.NewMailHandler(mailService)
	userHandler := handlers.NewUserHandler(accountRepo, cfg.Logger)
	statsHandler := handlers.NewStatsHandler(stats)
	importHandler := handlers.NewImportHandler(importer)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	api := e.Group("/api")

	// Login is the only unauthenticated API route
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("", middleware.Authenticate(strategy, cfg.Logger))
	admin := authed.Group("", middleware.RequireAdmin(cfg.Logger))

	// Session routes
	authed.GET("/auth/me", authHandler.Me)
	admin.POST("/auth/register", authHandler.Register)

	// Service routes
	authed.GET("/services", serviceHandler.List)
	authed.POST("/services", serviceHandler.Create)
	authed.PUT("/services/:id", serviceHandler.Update)
	admin.POST("/services/:id/archive", serviceHandler.Archive)
	// Deleting a service archives it; the register never discards mail
	admin.DELETE("/services/:id", serviceHandler.Archive)
	admin.POST("/services/:id/restore", serviceHandler.Restore)

	// Correspondent routes
	authed.GET("/correspondents", correspondentHandler.List)
	authed.GET("/correspondents/:id", correspondentHandler.Get)
	authed.POST("/correspondents", correspondentHandler.Create)
	authed.PUT("/correspondents/:id", correspondentHandler.Update)
	admin.DELETE("/correspondents/:id", correspondentHandler.Delete)

	// Mail routes
	authed.GET("/mails", mailHandler.List)
	authed.GET("/mails/:id", mailHandler.Get)
	authed.POST("/mails", mailHandler.Create)
	authed.PUT("/mails/:id", mailHandler.Update)
	admin.DELETE("/mails/:id", mailHandler.Delete)
	authed.POST("/mails/:id/attachments", mailHandler.AddAttachment)
	authed.GET("/mails/:id/attachments/:attachmentID", mailHandler.DownloadAttachment)

	// Account administration routes
	admin.GET("/users", userHandler.List)
	admin.PUT("/users/:id/role", userHandler.UpdateRole)
	admin.DELETE("/users/:id", userHandler.Delete)

	// Stats
	authed.GET("/stats", statsHandler.Stats)

	// Legacy import
	admin.POST("/import/csv", importHandler.ImportCSV)

	// Mail event stream
	if cfg.Hub != nil {
		upgrader := websocket.NewSecureUpgrader(cfg.Config.AllowedOrigins, cfg.Logger)
		wsHandler := handlers.NewWSHandler(cfg.Hub, upgrader, cfg.Logger)
		authed.GET("/ws", wsHandler.Connect)
	}

	return e
}
