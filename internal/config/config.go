package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"story-server/shared/utils"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" default:"postgres"`
	DBName        string        `envconfig:"DB_NAME" default:"stories"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	MigrationsEnabled bool `envconfig:"MIGRATIONS_ENABLED" default:"true"`

	// Redis (кэш историй). Пустой адрес отключает кэш.
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	StoryCacheTTL time.Duration `envconfig:"STORY_CACHE_TTL" default:"5m"`
	RedisPassword string

	// RabbitMQ (события историй). Пустой URL отключает публикацию.
	RabbitMQURL         string `envconfig:"RABBITMQ_URL" default:""`
	StoryEventsExchange string `envconfig:"STORY_EVENTS_EXCHANGE" default:"story_events"`

	// JWT
	JWTSecret   string
	JWTTokenTTL time.Duration `envconfig:"JWT_TOKEN_TTL" default:"168h"` // 7 days

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Rate limit для /api/auth по IP
	AuthRateLimit  uint          `envconfig:"AUTH_RATE_LIMIT" default:"10"`
	AuthRateWindow time.Duration `envconfig:"AUTH_RATE_WINDOW" default:"1m"`

	// Строгий режим reorder: список должен содержать все выборы узла.
	ReorderRequireFullSet bool `envconfig:"REORDER_REQUIRE_FULL_SET" default:"false"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// LoadConfig loads configuration from an optional .env file, environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecretOrEnv("db_password", "DB_PASSWORD")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecretOrEnv("jwt_secret", "JWT_SECRET")
	if loadErr != nil {
		return nil, loadErr
	}

	// Необязательный секрет
	if redisPass, err := utils.ReadSecretOrEnv("redis_password", "REDIS_PASSWORD"); err == nil {
		cfg.RedisPassword = redisPass
	}

	if cfg.JWTTokenTTL <= 0 {
		return nil, fmt.Errorf("JWT_TOKEN_TTL must be positive, got %s", cfg.JWTTokenTTL)
	}

	return &cfg, nil
}
