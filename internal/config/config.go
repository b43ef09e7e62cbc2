package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Upload    UploadConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // "development", "production", "test"
	ClientURL   string // Allowed CORS origin
	LogLevel    string

	// TrustedProxies lists proxy addresses or CIDRs whose forwarding headers
	// name the client. Empty means the socket address is used.
	TrustedProxies []string
}

func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret  string
	JWTExpiry  time.Duration
	JWTIssuer  string
	BcryptCost int
}

type UploadConfig struct {
	Dir             string
	MaxFileSize     int64
	Provider        string // "local", "gcs"
	GCSBucket       string
	GCSCredentials  string // raw service account JSON
	GCSCredFilePath string
}

type EmailConfig struct {
	Provider     string // "resend", "console"
	FromAddress  string
	FromName     string
	BaseURL      string // Client base URL for links
	ResendAPIKey string
}

type RateLimitConfig struct {
	Window  time.Duration
	Max     int64
	AuthMax int64
}

const defaultJWTSecret = "development-secret-change-in-production"

// DSN prefers DATABASE_URL and falls back to the individual parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", getEnv("NODE_ENV", "development"))
	dev := env != "production"

	jwtExpiry, err := parseExpiry(getEnvNonEmpty("JWT_EXPIRES_IN", "7d"))
	if err != nil {
		return nil, fmt.Errorf("parsing JWT_EXPIRES_IN: %w", err)
	}

	rateWindow := 15 * time.Minute
	if v := getEnv("RATE_LIMIT_WINDOW", ""); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("parsing RATE_LIMIT_WINDOW: invalid duration %q", v)
		}
		rateWindow = parsed
	}

	generalMax, authMax := int64(100), int64(5)
	if dev {
		generalMax, authMax = 1000, 50
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("PORT", getEnvInt("SERVER_PORT", 3000)),
			Environment:    env,
			ClientURL:      getEnvNonEmpty("CLIENT_URL", "http://localhost:5173"),
			LogLevel:       getEnvNonEmpty("LOG_LEVEL", "info"),
			TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "giftcircle"),
			Password: getEnv("DB_PASSWORD", "giftcircle"),
			DBName:   getEnv("DB_NAME", "giftcircle"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 5)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			URL:      getEnv("REDIS_URL", ""),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnvNonEmpty("JWT_SECRET", defaultJWTSecret),
			JWTExpiry:  jwtExpiry,
			JWTIssuer:  getEnvNonEmpty("JWT_ISSUER", "giftcircle"),
			BcryptCost: getEnvInt("BCRYPT_COST", 12),
		},
		Upload: UploadConfig{
			Dir:             getEnvNonEmpty("UPLOAD_DIR", "uploads"),
			MaxFileSize:     getEnvInt64("MAX_FILE_SIZE", 5*1024*1024),
			Provider:        strings.ToLower(getEnvNonEmpty("STORAGE_PROVIDER", "local")),
			GCSBucket:       getEnv("GCS_BUCKET", ""),
			GCSCredentials:  getEnv("GCS_CREDENTIALS_JSON", ""),
			GCSCredFilePath: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "console"),
			FromAddress:  getEnv("EMAIL_FROM_ADDRESS", "noreply@giftcircle.app"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Gift Circle"),
			BaseURL:      getEnvNonEmpty("APP_BASE_URL", getEnvNonEmpty("CLIENT_URL", "http://localhost:5173")),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			Window:  rateWindow,
			Max:     getEnvInt64("RATE_LIMIT_MAX", generalMax),
			AuthMax: getEnvInt64("AUTH_RATE_LIMIT_MAX", authMax),
		},
	}
	if cfg.Redis.URL != "" {
		cfg.Redis.Enabled = true
	}

	if err := cfg.Validate(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate(lookupEnv func(string) (string, bool)) error {
	var errs []error
	if c.Server.IsProduction() {
		for _, key := range []string{"DATABASE_URL", "JWT_SECRET"} {
			if v, ok := lookupEnv(key); !ok || strings.TrimSpace(v) == "" {
				errs = append(errs, fmt.Errorf("missing required environment variable: %s", key))
			}
		}
	}
	switch c.Upload.Provider {
	case "local":
	case "gcs":
		if c.Upload.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when STORAGE_PROVIDER=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_PROVIDER %q", c.Upload.Provider))
	}
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// parseExpiry accepts Go durations plus a whole-day form such as "7d".
func parseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("expiry must be positive, got %q", value)
	}
	return d, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
