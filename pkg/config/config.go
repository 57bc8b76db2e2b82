package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SecretID        string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Env             string
	BodyLimit       string
	ShutdownTimeout time.Duration
}

// JWTConfig holds the settings used to verify access tokens issued by the auth provider.
// When JWKSURL is set tokens are verified against the provider's published keys,
// otherwise SigningKey is used as an HMAC secret.
type JWTConfig struct {
	SigningKey string
	JWKSURL    string
	Issuer     string
	Audience   string
	AdminRole  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Prefix string
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Region                 string
	Endpoint               string
	PublicURL              string
	AccessKeyID            string
	SecretAccessKey        string
	UsePathStyle           bool
	ListingImagesBucket    string
	ListingDocumentsBucket string
	SellerDocumentsBucket  string
}

// MailConfig holds SMTP configuration for transactional email
type MailConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	AdminAddress string
	Timeout      time.Duration
}

// CORSConfig holds allowed origins for browser clients
type CORSConfig struct {
	AllowedOrigins []string
}

// ListingConfig holds listing search and upload limits
type ListingConfig struct {
	DefaultLimit      int
	MaxLimit          int
	ImageMaxDimension int
	ImageQuality      int
	MaxDocumentBytes  int64
	MaxRequestBytes   int64
}

// Config holds all configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	DB          DBConfig
	JWT         JWTConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Storage     StorageConfig
	Mail        MailConfig
	CORS        CORSConfig
	Listing     ListingConfig
}

// Load loads configuration from a .env file (when present) and environment variables
func Load() (*Config, error) {
	// .env is optional, deployed environments set variables directly
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "watch-pros"),
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			BodyLimit:       getEnv("SERVER_BODY_LIMIT", "60M"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "watch_pros"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			SecretID:        getEnv("DB_SECRET_ID", ""),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", ""),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", ""),
			JWKSURL:    getEnv("JWT_JWKS_URL", ""),
			Issuer:     getEnv("JWT_ISSUER", ""),
			Audience:   getEnv("JWT_AUDIENCE", ""),
			AdminRole:  getEnv("JWT_ADMIN_ROLE", "admin"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "watchpros"),
		},
		Storage: StorageConfig{
			Region:                 getEnv("STORAGE_REGION", "eu-west-3"),
			Endpoint:               getEnv("STORAGE_ENDPOINT", ""),
			PublicURL:              strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", "http://localhost:9000"), "/"),
			AccessKeyID:            getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey:        getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			UsePathStyle:           getEnvAsBool("STORAGE_USE_PATH_STYLE", true),
			ListingImagesBucket:    getEnv("STORAGE_BUCKET_LISTING_IMAGES", "listingimages"),
			ListingDocumentsBucket: getEnv("STORAGE_BUCKET_LISTING_DOCUMENTS", "listingdocuments"),
			SellerDocumentsBucket:  getEnv("STORAGE_BUCKET_SELLER_DOCUMENTS", "sellerdocuments"),
		},
		Mail: MailConfig{
			Host:         getEnv("SMTP_HOST", "localhost"),
			Port:         getEnvAsInt("SMTP_PORT", 587),
			Username:     getEnv("SMTP_USERNAME", ""),
			Password:     getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", "no-reply@watch-pros.com"),
			AdminAddress: getEnv("MAIL_ADMIN_ADDRESS", "admin@watch-pros.com"),
			Timeout:      getEnvAsDuration("SMTP_TIMEOUT", 15*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Listing: ListingConfig{
			DefaultLimit:      getEnvAsInt("LISTING_DEFAULT_LIMIT", 20),
			MaxLimit:          getEnvAsInt("LISTING_MAX_LIMIT", 100),
			ImageMaxDimension: getEnvAsInt("LISTING_IMAGE_MAX_DIMENSION", 1600),
			ImageQuality:      getEnvAsInt("LISTING_IMAGE_QUALITY", 80),
			MaxDocumentBytes:  int64(getEnvAsInt("UPLOAD_MAX_DOCUMENT_BYTES", 10<<20)),
			MaxRequestBytes:   int64(getEnvAsInt("UPLOAD_MAX_REQUEST_BYTES", 60<<20)),
		},
	}

	if cfg.JWT.SigningKey == "" && cfg.JWT.JWKSURL == "" {
		return nil, fmt.Errorf("either JWT_SIGNING_KEY or JWT_JWKS_URL must be set")
	}

	return cfg, nil
}

// LogConfig returns the configuration as zap fields
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
	}
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
