package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix, e.g. CONDUIT_PORT.
const Prefix = "CONDUIT"

// Config holds the host settings. Every field can be set from the environment.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	// Store selects the session store: memory, file or redis.
	Store      string        `envconfig:"STORE" default:"memory"`
	SessionDir string        `envconfig:"SESSION_DIR" default:".conduit/sessions"`
	RedisURL   string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// SessionKey is a base64 AES-256 key; when set, sessions are stored encrypted.
	SessionKey          string   `envconfig:"SESSION_KEY"`
	SessionFallbackKeys []string `envconfig:"SESSION_FALLBACK_KEYS"`
	// PIIKeys are regular expressions over session keys whose values are masked on save.
	PIIKeys []string `envconfig:"PII_KEYS"`

	ConnectionsFile  string `envconfig:"CONNECTIONS_FILE" default:"connections.yaml"`
	WatchConnections bool   `envconfig:"WATCH_CONNECTIONS" default:"false"`

	// KnowledgeSink selects where chunks go: memory, redis or sqlite.
	KnowledgeSink string `envconfig:"KNOWLEDGE_SINK" default:"memory"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"conduit.db"`
	ChunkSize     int    `envconfig:"CHUNK_SIZE" default:"2000"`
	ChunkOverlap  int    `envconfig:"CHUNK_OVERLAP" default:"200"`

	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	NodeTimeout  time.Duration `envconfig:"NODE_TIMEOUT" default:"30s"`
	MaxInputSize int           `envconfig:"MAX_INPUT_SIZE" default:"4096"`
}

// Load reads envFile (when present) and then the environment.
// A missing env file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Store {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown store %q (want memory, file or redis)", c.Store)
	}
	switch c.KnowledgeSink {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown knowledge sink %q (want memory, redis or sqlite)", c.KnowledgeSink)
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid chunking: size %d, overlap %d", c.ChunkSize, c.ChunkOverlap)
	}
	return nil
}
