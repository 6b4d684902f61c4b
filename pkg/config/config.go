package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Sheets       SheetsConfig
	Redis        RedisConfig
	Sync         SyncConfig
	FeatureFlags FeatureFlagsConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	// hosting platforms inject PORT
	if port := strings.TrimSpace(os.Getenv(EnvPlatformPort)); port != "" {
		cfg.App.Port = port
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GEARSHED_APP_ENV" required:"true"`
	Port         string `envconfig:"GEARSHED_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GEARSHED_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GEARSHED_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Path         string        `envconfig:"GEARSHED_DB_PATH" default:"data/gearshed.db"`
	BusyTimeout  time.Duration `envconfig:"GEARSHED_DB_BUSY_TIMEOUT" default:"5s"`
	MaxOpenConns int           `envconfig:"GEARSHED_DB_MAX_OPEN_CONNS" default:"4"`
}

// DSN builds the sqlite connection string with WAL journaling so readers do
// not block the single writer. Transactions take the write lock up front, so
// a read inside a transaction cannot go stale before its write.
func (db DBConfig) DSN() string {
	path := db.Path
	if path == "" {
		path = "data/gearshed.db"
	}
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	busy := db.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on&_synchronous=NORMAL&_txlock=immediate", path, busy.Milliseconds())
}

type SheetsConfig struct {
	SpreadsheetID   string        `envconfig:"GEARSHED_SHEETS_SPREADSHEET_ID"`
	ClientEmail     string        `envconfig:"GEARSHED_SHEETS_CLIENT_EMAIL"`
	PrivateKey      string        `envconfig:"GEARSHED_SHEETS_PRIVATE_KEY"`
	CredentialsJSON string        `envconfig:"GEARSHED_SHEETS_CREDENTIALS_JSON"`
	InventoryTab    string        `envconfig:"GEARSHED_SHEETS_INVENTORY_TAB" default:"Master Inventory"`
	TransactionsTab string        `envconfig:"GEARSHED_SHEETS_TRANSACTIONS_TAB" default:"Transactions"`
	MetadataTab     string        `envconfig:"GEARSHED_SHEETS_METADATA_TAB" default:"Metadata"`
	Timeout         time.Duration `envconfig:"GEARSHED_SHEETS_TIMEOUT" default:"20s"`
}

// Key returns the PEM private key with escaped newlines restored.
func (s SheetsConfig) Key() string {
	key := strings.TrimSpace(s.PrivateKey)
	key = strings.Trim(key, `"`)
	return strings.ReplaceAll(key, `\n`, "\n")
}

// Validate checks that one credential style is configured.
func (s SheetsConfig) Validate() error {
	if strings.TrimSpace(s.SpreadsheetID) == "" {
		return fmt.Errorf("%s is required", EnvSheetsSpreadsheetID)
	}
	if strings.TrimSpace(s.CredentialsJSON) != "" {
		return nil
	}
	if strings.TrimSpace(s.ClientEmail) == "" || s.Key() == "" {
		return fmt.Errorf("either %s or %s and %s are required", EnvSheetsCredentialsJSON, EnvSheetsClientEmail, EnvSheetsPrivateKey)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"GEARSHED_REDIS_URL"`
	PoolSize     int           `envconfig:"GEARSHED_REDIS_POOL_SIZE" default:"4"`
	DialTimeout  time.Duration `envconfig:"GEARSHED_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEARSHED_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"GEARSHED_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a redis server was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type SyncConfig struct {
	Interval       time.Duration `envconfig:"GEARSHED_SYNC_INTERVAL" default:"0"`
	BeforeCheckout bool          `envconfig:"GEARSHED_SYNC_BEFORE_CHECKOUT" default:"true"`
	LockTTL        time.Duration `envconfig:"GEARSHED_SYNC_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GEARSHED_AUTO_MIGRATE" default:"true"`
	Diagnostics bool `envconfig:"GEARSHED_DIAGNOSTICS" default:"false"`
}

type HTTPConfig struct {
	CORSOrigins     []string      `envconfig:"GEARSHED_CORS_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout     time.Duration `envconfig:"GEARSHED_HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"GEARSHED_HTTP_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"GEARSHED_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}
