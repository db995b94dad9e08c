package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/car-storefront-api/internal/importer"
	"github.com/joho/godotenv"
)

// Config holds all backend configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Admin authentication
	Auth AuthConfig

	// CSV import runs
	Import ImportConfig

	// Uploaded image storage
	Storage StorageConfig

	// Public catalog cache
	Cache CacheConfig

	// Storefront defaults
	Store StoreConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MigrationsPath  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// AuthConfig holds JWT and bootstrap admin settings
type AuthConfig struct {
	JWTSecret            string
	TokenTTL             time.Duration
	DefaultAdminUsername string
	DefaultAdminPassword string
	LoginRatePerMinute   int
	LoginBurst           int
}

// ImportConfig holds server-side import run settings
type ImportConfig struct {
	MaxUploadSize    int64 // in bytes
	UploadDir        string
	PlaceholderImage string
	PollInterval     time.Duration
}

// StorageConfig selects where uploaded images go. S3 is used when S3Bucket is set.
type StorageConfig struct {
	UploadDir     string
	MaxImageSize  int64
	MaxImageWidth uint
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3PublicURL   string
	S3AccessKey   string
	S3SecretKey   string
}

// CacheConfig holds redis settings for the public catalog cache
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// StoreConfig holds storefront-level fallbacks
type StoreConfig struct {
	WhatsApp    string
	CORSOrigins []string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// ClientConfig configures the operator CLI's connection to the backend
type ClientConfig struct {
	BackendURL     string
	Token          string
	RequestTimeout time.Duration
	RetryDelay     time.Duration
	Log            LogConfig
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "car_storefront"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			TokenTTL:             getDurationEnv("JWT_TTL", 24*time.Hour),
			DefaultAdminUsername: getEnv("ADMIN_USERNAME", "admin"),
			DefaultAdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
			LoginRatePerMinute:   getIntEnv("LOGIN_RATE_PER_MINUTE", 10),
			LoginBurst:           getIntEnv("LOGIN_BURST", 5),
		},
		Import: ImportConfig{
			MaxUploadSize:    getInt64Env("IMPORT_MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
			UploadDir:        getEnv("IMPORT_UPLOAD_DIR", "./data/imports"),
			PlaceholderImage: getEnv("IMPORT_PLACEHOLDER_IMAGE", importer.DefaultPlaceholderImage),
			PollInterval:     getDurationEnv("IMPORT_POLL_INTERVAL", 2*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:     getEnv("UPLOAD_DIR", "./data/uploads"),
			MaxImageSize:  getInt64Env("UPLOAD_MAX_SIZE", 5*1024*1024), // 5MB
			MaxImageWidth: uint(getIntEnv("UPLOAD_MAX_WIDTH", 1280)),
			S3Bucket:      getEnv("S3_BUCKET", ""),
			S3Region:      getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:    getEnv("S3_ENDPOINT", ""),
			S3PublicURL:   getEnv("S3_PUBLIC_URL", ""),
			S3AccessKey:   getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretKey:   getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			TTL:           getDurationEnv("CACHE_TTL", 5*time.Minute),
		},
		Store: StoreConfig{
			WhatsApp:    getEnv("STORE_WHATSAPP", "5511999999999"),
			CORSOrigins: getListEnv("CORS_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// UsesS3 reports whether uploaded images go to S3 instead of local disk
func (c *StorageConfig) UsesS3() bool {
	return c.S3Bucket != ""
}

// LoadClient reads the CLI configuration. Flags may override it afterwards.
func LoadClient() ClientConfig {
	loadDotEnv()

	return ClientConfig{
		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
		Token:          getEnv("DEALER_TOKEN", ""),
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", 15*time.Second),
		RetryDelay:     getDurationEnv("RETRY_DELAY", 500*time.Millisecond),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "warn"),
			Format: getEnv("LOG_FORMAT", "pretty"),
		},
	}
}

// loadDotEnv loads an optional .env file; real environment variables win.
func loadDotEnv() {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
