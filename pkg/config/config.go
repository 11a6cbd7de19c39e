package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// Store backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// DefaultSigningKey is the JWT key used when JWT_SIGNING_KEY is unset. It is
// refused when APP_ENV is production.
const DefaultSigningKey = "defaultsecretkey"

// DBConfig holds database configuration for the postgres backend
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// StoreConfig selects and tunes the collection store
type StoreConfig struct {
	Backend     string
	DataDir     string
	SQLitePath  string
	LockTimeout time.Duration
}

// IDConfig tunes identifier generation
type IDConfig struct {
	Length      int
	MaxAttempts int
}

// MediaConfig points at the directory holding uploaded images
type MediaConfig struct {
	Dir string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	Store       StoreConfig
	DB          DBConfig
	IDs         IDConfig
	Media       MediaConfig
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// Load reads configuration from the environment, after an optional .env file
func Load(serviceName string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{
		ServiceName: serviceName,
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Store: StoreConfig{
			Backend:     getEnv("STORE_BACKEND", BackendFile),
			DataDir:     getEnv("STORE_DATA_DIR", "data"),
			SQLitePath:  getEnv("STORE_SQLITE_PATH", "storefront.db"),
			LockTimeout: getEnvAsDuration("STORE_LOCK_TIMEOUT", 5*time.Second),
		},
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", serviceName),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Error),
		},
		IDs: IDConfig{
			Length:      getEnvAsInt("ID_LENGTH", 6),
			MaxAttempts: getEnvAsInt("ID_MAX_ATTEMPTS", 32),
		},
		Media: MediaConfig{
			Dir: getEnv("MEDIA_DIR", "uploads"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", DefaultSigningKey),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", serviceName),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.LockTimeout <= 0 {
		return fmt.Errorf("config: STORE_LOCK_TIMEOUT must be positive, got %s", c.Store.LockTimeout)
	}
	if c.IDs.Length <= 0 || c.IDs.MaxAttempts <= 0 {
		return fmt.Errorf("config: ID_LENGTH and ID_MAX_ATTEMPTS must be positive")
	}
	if c.Server.Env == "production" && (c.JWT.SigningKey == "" || c.JWT.SigningKey == DefaultSigningKey) {
		return fmt.Errorf("config: JWT_SIGNING_KEY must be set in production")
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	fields := []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("server_port", c.Server.Port),
		zap.String("store_backend", c.Store.Backend),
		zap.Duration("store_lock_timeout", c.Store.LockTimeout),
		zap.String("media_dir", c.Media.Dir),
	}
	switch c.Store.Backend {
	case BackendFile:
		fields = append(fields, zap.String("store_data_dir", c.Store.DataDir))
	case BackendSQLite:
		fields = append(fields, zap.String("store_sqlite_path", c.Store.SQLitePath))
	case BackendPostgres:
		fields = append(fields,
			zap.String("db_host", c.DB.Host),
			zap.String("db_port", c.DB.Port),
			zap.String("db_user", c.DB.User),
			zap.String("db_name", c.DB.DBName))
	}
	return fields
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	switch getEnv(key, "") {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
