package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=5000"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET"`

	// AdminPassword unlocks /api/admin/verify. Leaving it empty disables
	// admin sessions.
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	TokenTTL      time.Duration `env:"TOKEN_TTL, default=12h"`

	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Uploads  UploadConfig
	Payout   PayoutConfig
	Audit    AuditConfig
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `env:"DB_DRIVER, default=sqlite"`
	DSN    string `env:"DB_DSN,    default=file:contest.db?_foreign_keys=on"`
}

// MongoConfig configures the ledger audit trail. When MongoDB is unreachable
// at startup the trail is disabled and audit events are only logged.
type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=contest"`
}

// RedisConfig configures the deposit idempotency store. When Redis is
// unreachable deposits still dedupe on the transaction reference index.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type UploadConfig struct {
	Dir      string `env:"UPLOAD_DIR,       default=./public/uploads"`
	MaxBytes int64  `env:"UPLOAD_MAX_BYTES, default=10485760"`
}

type PayoutConfig struct {
	Timeout time.Duration `env:"PAYOUT_TIMEOUT, default=10s"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadContext(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadContext reads configuration through lookuper.
func LoadContext(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	return &cfg, nil
}
