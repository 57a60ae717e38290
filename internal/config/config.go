package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSessionSecret = "your-secret-key-change-in-production"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Gateway  GatewayConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Env         string
	CORSOrigins []string
}

// DatabaseConfig holds either a full DATABASE_URL or its parts. The parts are
// always filled so they can be logged without the password.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig points at the store that keeps open dialogs between requests.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	DialogTTL time.Duration
}

type SessionConfig struct {
	Secret string
}

// GatewayConfig is used by clients that talk to the service over HTTP.
type GatewayConfig struct {
	URL     string
	Timeout time.Duration
}

type LogConfig struct {
	Level string
}

// Load reads the configuration from the environment. Values in .env.local
// and .env are used for variables that are not already set.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
			// comma separated, e.g. https://desk.example.com,*.example.com
			CORSOrigins: getEnvAsList("CORS_ORIGINS"),
		},
		Database: loadDatabase(),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			DialogTTL: getEnvAsDuration("DIALOG_TTL", 30*time.Minute),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", defaultSessionSecret),
		},
		Gateway: GatewayConfig{
			URL:     getEnv("GATEWAY_URL", "http://localhost:8080"),
			Timeout: getEnvAsDuration("GATEWAY_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.IsProduction() && cfg.Session.Secret == defaultSessionSecret {
		return nil, errors.New("SESSION_SECRET must be set in production")
	}
	return cfg, nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// DSN returns a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func loadDatabase() DatabaseConfig {
	db := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "event_templates"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),

		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		db.applyURL(raw)
	}
	return db
}

// applyURL takes the parts from a postgres:// URL. An unparsable URL is
// still passed to the driver as is.
func (c *DatabaseConfig) applyURL(raw string) {
	c.URL = raw
	u, err := url.Parse(raw)
	if err != nil {
		return
	}

	c.Host = u.Hostname()
	c.Port = 5432
	if p, err := strconv.Atoi(u.Port()); err == nil {
		c.Port = p
	}
	c.User = u.User.Username()
	c.Password, _ = u.User.Password()
	c.DBName = strings.TrimPrefix(u.Path, "/")
	c.SSLMode = "disable"
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
