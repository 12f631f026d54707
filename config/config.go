package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT, default=8081"`
	JWTSecret string `env:"JWT_SECRET, default=dev-super-secret-change-me"`
	JWTExpiry int    `env:"JWT_EXPIRY_HOURS, default=24"`

	LogLevel   string `env:"LOG_LEVEL, default=info"`
	PrettyLogs bool   `env:"PRETTY_LOGS, default=false"`

	MaxMessageLength int `env:"MAX_MESSAGE_LENGTH, default=1000"`
	// HistoryLimit caps how many messages a history pull returns.
	HistoryLimit int `env:"HISTORY_LIMIT, default=200"`

	// SweepInterval is how often the reconciliation sweep re-checks live
	// sessions against the user store.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL, default=30s"`
	// WordRefreshInterval is the fallback poll that rebroadcasts the
	// censor word set even when no edits happened.
	WordRefreshInterval time.Duration `env:"WORD_REFRESH_INTERVAL, default=5m"`

	// Store selects the durable store backend: "memory" or "mongo".
	Store string `env:"STORE, default=memory"`
	Mongo MongoConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB, default=chat_server"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
