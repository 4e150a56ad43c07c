package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fakaperformance/contest-api/docs"
	"github.com/fakaperformance/contest-api/internal/api/handler"
	"github.com/fakaperformance/contest-api/internal/api/middleware"
	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// Services are the inbound ports served over HTTP.
type Services struct {
	Accounts ports.AccountService
	Wallet   ports.WalletService
	Entries  ports.EntryService
	Votes    ports.VoteService
	Editions ports.EditionService
	Settings ports.SettingsService
	Admin    ports.AdminService
}

type RouterConfig struct {
	JWTSecret string
	// UploadDir is served under /uploads when set.
	UploadDir string
	Log       zerolog.Logger
	Services  Services
	// Dependencies are pinged by the readiness check.
	Dependencies []handler.Dependency
	// Registry receives the HTTP metrics. Nil means the global registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		ExposeHeaders: []string{handler.HeaderContestWeek},
	}))
	e.Use(requestLogger(cfg.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "contest",
		Registerer: registerer,
	}))

	// --- Handlers ---
	s := cfg.Services
	accountHandler := handler.NewAccountHandler(s.Accounts)
	walletHandler := handler.NewWalletHandler(s.Wallet)
	entryHandler := handler.NewEntryHandler(s.Entries)
	voteHandler := handler.NewVoteHandler(s.Votes)
	editionHandler := handler.NewEditionHandler(s.Editions)
	settingsHandler := handler.NewSettingsHandler(s.Settings)
	adminHandler := handler.NewAdminHandler(s.Admin)
	authMiddleware := middleware.Auth(cfg.JWTSecret, s.Admin)

	// --- Public routes ---
	pub := e.Group("/api")
	pub.POST("/register", accountHandler.Register)
	pub.GET("/user/:username", accountHandler.GetUser)
	pub.PUT("/user/:username/iban", accountHandler.SaveIBAN)
	pub.GET("/user/:username/transactions", accountHandler.ListTransactions)

	pub.POST("/deposit", walletHandler.Deposit)
	pub.POST("/frontend/withdraw", walletHandler.Withdraw)

	pub.POST("/entries", entryHandler.Submit)
	pub.GET("/entries", entryHandler.List)
	pub.DELETE("/entries/:id", entryHandler.Cancel)
	pub.POST("/vote", voteHandler.Cast)

	pub.GET("/settings", settingsHandler.Public)
	pub.GET("/editions", editionHandler.List)
	pub.GET("/editions/published", editionHandler.GetPublished)
	pub.POST("/admin/verify", adminHandler.Verify)

	// --- Magazine CMS ---
	cms := e.Group("/api/editions", authMiddleware, middleware.RequirePermission(domain.PermManageMagazine))
	cms.POST("", editionHandler.Upsert)
	cms.POST("/draft", editionHandler.CreateDraft)
	cms.POST("/:id/publish", editionHandler.Publish)
	cms.DELETE("/:id", editionHandler.Delete)

	// --- Admin ---
	admin := e.Group("/api/admin", authMiddleware)
	admin.GET("/session", adminHandler.Session)

	settingsPerm := middleware.RequirePermission(domain.PermManageSettings)
	admin.GET("/settings", settingsHandler.Get, settingsPerm)
	admin.POST("/settings", settingsHandler.Update, settingsPerm)

	rolesPerm := middleware.RequirePermission(domain.PermManageRoles)
	admin.GET("/roles", adminHandler.ListRoles, rolesPerm)
	admin.POST("/roles", adminHandler.CreateRole, rolesPerm)
	admin.DELETE("/roles/:id", adminHandler.DeleteRole, rolesPerm)
	admin.POST("/users/:username/roles", adminHandler.AssignRole, rolesPerm)
	admin.DELETE("/users/:username/roles/:roleId", adminHandler.RevokeRole, rolesPerm)
	admin.POST("/users/:username/token", adminHandler.IssueStaffToken, rolesPerm)

	// --- Static uploads ---
	if cfg.UploadDir != "" {
		e.Static("/uploads", cfg.UploadDir)
	}

	// --- Health checks, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(cfg.Dependencies...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Error != nil:
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
