package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Storage drivers
const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// Notification channels
const (
	ChannelLog      = "log"
	ChannelWebhook  = "webhook"
	ChannelTelegram = "telegram"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Storage  StorageConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Ledger   LedgerConfig
	Notify   NotifyConfig
	Cron     CronConfig
	Log      LogConfig
	Seed     SeedConfig
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver string
}

// DatabaseConfig holds MySQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI      string
	Database string
}

// JWTConfig holds token configuration
type JWTConfig struct {
	Secret           string
	Issuer           string
	AccessTokenMins  int
	RefreshTokenDays int
	ReuseDetection   bool
}

// AccessTTL returns the access token lifetime
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTokenMins) * time.Minute
}

// RefreshTTL returns the refresh token lifetime
func (j JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// LedgerConfig holds subscription ledger settings
type LedgerConfig struct {
	InitialBalance decimal.Decimal
	MaxRetries     int
}

// NotifyConfig holds notification delivery settings
type NotifyConfig struct {
	Channel        string
	QueueSize      int
	RatePerSecond  float64
	WebhookURL     string
	TelegramToken  string
	TelegramChatID int64
}

// CronConfig holds background job schedules
type CronConfig struct {
	TokenSweep string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// SeedConfig holds bootstrap data settings
type SeedConfig struct {
	AdminUsername string
	AdminPassword string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	ledger, err := loadLedgerConfig()
	if err != nil {
		return nil, err
	}
	notify, err := loadNotifyConfig(appMode)
	if err != nil {
		return nil, err
	}

	// Build config based on APP_MODE
	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Storage:  StorageConfig{Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverMySQL))},
		Database: loadDatabaseConfig(appMode),
		Mongo:    loadMongoConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		Ledger:   ledger,
		Notify:   notify,
		Cron:     CronConfig{TokenSweep: getEnv("TOKEN_SWEEP_CRON", "@every 1h")},
		Log:      loadLogConfig(appMode),
		Seed: SeedConfig{
			AdminUsername: getEnv("ADMIN_USERNAME", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Set global config
	AppConfig = config

	log.Info().Str("mode", appMode).Str("storage", config.Storage.Driver).Msg("✅ Configuration loaded successfully")
	return config, nil
}

// Validate checks settings that have no safe fallback
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMySQL, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER: '%s' (must be mysql, mongo or memory)", c.Storage.Driver)
	}

	switch c.Notify.Channel {
	case ChannelLog:
	case ChannelWebhook:
		if c.Notify.WebhookURL == "" {
			return fmt.Errorf("NOTIFY_WEBHOOK_URL is required for the webhook channel")
		}
	case ChannelTelegram:
		if c.Notify.TelegramToken == "" || c.Notify.TelegramChatID == 0 {
			return fmt.Errorf("telegram token and chat id are required for the telegram channel")
		}
	default:
		return fmt.Errorf("invalid NOTIFY_CHANNEL: '%s' (must be log, webhook or telegram)", c.Notify.Channel)
	}

	if c.IsProd() && c.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}
	if c.JWT.AccessTokenMins <= 0 || c.JWT.RefreshTokenDays <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Ledger.InitialBalance.IsNegative() {
		return fmt.Errorf("INITIAL_BALANCE cannot be negative")
	}
	if !c.Ledger.InitialBalance.Equal(c.Ledger.InitialBalance.Round(2)) {
		return fmt.Errorf("INITIAL_BALANCE is limited to 2 decimal places")
	}
	return nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	maxOpen, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "100"))
	maxIdle, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	lifetime, err := time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		lifetime = time.Hour
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "btg_funds"),

		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: lifetime,
	}
}

// loadMongoConfig loads MongoDB config based on mode
func loadMongoConfig(mode string) MongoConfig {
	prefix := modePrefix(mode)

	return MongoConfig{
		URI:      getEnv(prefix+"MONGO_URI", "mongodb://localhost:27017"),
		Database: getEnv(prefix+"MONGO_DB", "btg_funds"),
	}
}

const defaultJWTSecret = "default_secret"

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))
	reuse, err := strconv.ParseBool(getEnv("REFRESH_REUSE_DETECTION", "true"))
	if err != nil {
		reuse = true
	}

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		Issuer:           getEnv("JWT_ISSUER", "btg-funds"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
		ReuseDetection:   reuse,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadLedgerConfig loads ledger settings
func loadLedgerConfig() (LedgerConfig, error) {
	balance, err := decimal.NewFromString(getEnv("INITIAL_BALANCE", "500000"))
	if err != nil {
		return LedgerConfig{}, fmt.Errorf("invalid INITIAL_BALANCE: %w", err)
	}
	retries, _ := strconv.Atoi(getEnv("LEDGER_MAX_RETRIES", "3"))

	return LedgerConfig{
		InitialBalance: balance,
		MaxRetries:     retries,
	}, nil
}

// loadNotifyConfig loads notification settings
func loadNotifyConfig(mode string) (NotifyConfig, error) {
	prefix := modePrefix(mode)

	queueSize, _ := strconv.Atoi(getEnv("NOTIFY_QUEUE_SIZE", "100"))
	perSecond, _ := strconv.ParseFloat(getEnv("NOTIFY_RATE_PER_SECOND", "5"), 64)

	var chatID int64
	if raw := getEnv("TELEGRAM_CHAT_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return NotifyConfig{}, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		chatID = id
	}

	return NotifyConfig{
		Channel:        strings.ToLower(getEnv("NOTIFY_CHANNEL", ChannelLog)),
		QueueSize:      queueSize,
		RatePerSecond:  perSecond,
		WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
		TelegramToken:  getEnv(prefix+"TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: chatID,
	}, nil
}

// loadLogConfig loads logging settings; dev defaults to pretty debug output
func loadLogConfig(mode string) LogConfig {
	level, pretty := "info", "false"
	if mode == "dev" {
		level, pretty = "debug", "true"
	}
	p, _ := strconv.ParseBool(getEnv("LOG_PRETTY", pretty))

	return LogConfig{
		Level:  getEnv("LOG_LEVEL", level),
		Pretty: p,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://funds.btg.example"
	}
	return origins
}
