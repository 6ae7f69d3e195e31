package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development fallback for JWT_SECRET. It is public
// and therefore refused outside debug mode.
const DefaultJWTSecret = "change-me-in-production"

// ErrInsecureJWTSecret is returned by Validate when a production config has
// no usable token secret.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a private value when DEBUG is off")

// Config stores the application configuration.
type Config struct {
	HTTPAddr string
	Debug    bool

	// Database. DBDriver is "mysql" or "sqlite".
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	// Session tokens
	JWTSecret  string
	SessionTTL time.Duration

	// Redis配置 (flash messages). Empty RedisHost disables Redis.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO 静态资源桶. Empty MinioEndpoint serves the embedded assets.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	// TemplateDir overrides the embedded templates; watched for changes when Debug is set.
	TemplateDir string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		Debug:          getEnvBool("DEBUG", false),
		DBDriver:       getEnv("DB_DRIVER", "mysql"),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:         getEnv("DB_NAME", "albumshelf"),
		SQLitePath:     getEnv("SQLITE_PATH", "albumshelf.db"),
		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		SessionTTL:     getEnvDuration("SESSION_TTL", 14*24*time.Hour),
		RedisHost:      getEnv("REDIS_HOST", ""),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "albumshelf"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		LogMaxSize:     getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:  getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:      getEnvInt("LOG_MAX_AGE", 30),
		TemplateDir:    getEnv("TEMPLATE_DIR", ""),
	}
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// MinioEnabled reports whether static assets are served from a MinIO bucket.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}

// Validate reports settings the server must not start with.
func (c *Config) Validate() error {
	if !c.Debug && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return ErrInsecureJWTSecret
	}
	return nil
}
