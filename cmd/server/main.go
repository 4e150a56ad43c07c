// @title                       Faka Performance Contest API
// @version                     1.0
// @description                 Weekly car photo contest, participant wallet and magazine CMS.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/fakaperformance/contest-api/internal/api"
	"github.com/fakaperformance/contest-api/internal/api/handler"
	"github.com/fakaperformance/contest-api/internal/api/metrics"
	"github.com/fakaperformance/contest-api/internal/core/ports"
	"github.com/fakaperformance/contest-api/internal/core/service"
	mongostore "github.com/fakaperformance/contest-api/internal/infrastructure/db/mongo"
	redisstore "github.com/fakaperformance/contest-api/internal/infrastructure/db/redis"
	"github.com/fakaperformance/contest-api/internal/infrastructure/db/sqlstore"
	"github.com/fakaperformance/contest-api/internal/infrastructure/payout"
	"github.com/fakaperformance/contest-api/internal/infrastructure/queue"
	"github.com/fakaperformance/contest-api/internal/infrastructure/storage"
	"github.com/fakaperformance/contest-api/internal/pkg/config"
	"github.com/fakaperformance/contest-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Warn().Err(err).Msg("could not read .env")
	}

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "contest-api",
	})

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Relational store ---
	db, err := sqlstore.Open(sqlstore.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Log:    logger.Component(log, "sqlstore"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := sqlstore.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// --- Audit trail (optional) ---
	mongoClient, auditRepo := connectAudit(ctx, cfg, log)
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditRepo, logger.Component(log, "audit"))
	dispatcher.Start(ctx)
	metrics.RegisterAuditQueue(dispatcher.Dropped)

	// --- Deposit idempotency (optional) ---
	rdb, dedup := connectDedup(ctx, cfg, log)

	// --- Uploads and payout ---
	images, err := storage.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		log.Fatal().Err(err).Msg("prepare upload directory")
	}
	payoutClient := payout.NewClient(cfg.Payout.Timeout)

	// --- Services ---
	users := sqlstore.NewUserRepository(db)
	roles := sqlstore.NewRoleRepository(db)
	ledger := sqlstore.NewLedgerRepository(db)
	entries := sqlstore.NewEntryRepository(db)
	votes := sqlstore.NewVoteRepository(db)
	editions := sqlstore.NewEditionRepository(db)
	settings := sqlstore.NewSettingsRepository(db)

	adminService, err := service.NewAdminService(users, roles, cfg.AdminPassword, cfg.JWTSecret, cfg.TokenTTL, logger.Component(log, "admin"))
	if err != nil {
		log.Fatal().Err(err).Msg("init admin service")
	}
	if cfg.AdminPassword == "" {
		log.Warn().Msg("ADMIN_PASSWORD is not set, admin login is disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		JWTSecret: cfg.JWTSecret,
		UploadDir: images.Dir(),
		Log:       logger.Component(log, "http"),
		Services: api.Services{
			Accounts: service.NewAccountService(users, ledger, logger.Component(log, "accounts")),
			Wallet:   service.NewWalletService(users, ledger, settings, payoutClient, dedup, dispatcher, logger.Component(log, "wallet")),
			Entries:  service.NewEntryService(users, entries, settings, images, dispatcher, logger.Component(log, "entries")),
			Votes:    service.NewVoteService(users, entries, votes, settings, logger.Component(log, "votes")),
			Editions: service.NewEditionService(editions, logger.Component(log, "editions")),
			Settings: service.NewSettingsService(settings, logger.Component(log, "settings")),
			Admin:    adminService,
		},
		Dependencies: readinessChecks(db, mongoClient, rdb),
	})

	// --- Serve ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Close()
	if mongoClient != nil {
		_ = mongoClient.Disconnect(shutdownCtx)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// connectAudit returns the MongoDB audit repository, or a log-only recorder
// when MongoDB cannot be reached.
func connectAudit(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*mongodriver.Client, ports.AuditRepository) {
	client, database, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "contest-api",
	})
	if err != nil {
		log.Warn().Err(err).Msg("mongodb unavailable, audit events will only be logged")
		return nil, queue.NewLogRecorder(logger.Component(log, "audit"))
	}

	repo := mongostore.NewAuditRepository(database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("could not create audit indexes")
	}
	return client, repo
}

// connectDedup returns the Redis deposit dedup, or nil when Redis cannot be
// reached; deposits then rely on the transaction reference index alone.
func connectDedup(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*goredis.Client, service.DepositDedup) {
	client, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, deposit dedup disabled")
		return nil, nil
	}
	return client, redisstore.NewDepositDedup(client)
}

func readinessChecks(db *gorm.DB, mongoClient *mongodriver.Client, rdb *goredis.Client) []handler.Dependency {
	deps := []handler.Dependency{
		{Name: "database", Check: func(ctx context.Context) error { return sqlstore.Ping(ctx, db) }},
		{Name: "mongodb", Optional: true},
		{Name: "redis", Optional: true},
	}
	if mongoClient != nil {
		deps[1].Check = func(ctx context.Context) error { return mongostore.Ping(ctx, mongoClient) }
	}
	if rdb != nil {
		deps[2].Check = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb, 2*time.Second) }
	}
	return deps
}
