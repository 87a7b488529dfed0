package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

var (
	ErrMissingJWTSecret  = errors.New("JWT_SECRET must be set")
	ErrInvalidBcryptCost = errors.New("bcrypt cost out of range")
	ErrUnknownDriver     = errors.New("unknown store driver")
)

// Config holds every process-wide setting. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	Port            string        `toml:"port"`
	Env             string        `toml:"env"`
	StoreDriver     string        `toml:"store_driver"`
	MongoURI        string        `toml:"mongo_uri"`
	MongoDatabase   string        `toml:"mongo_database"`
	DatabaseDSN     string        `toml:"database_dsn"`
	JWTSecret       string        `toml:"jwt_secret"`
	JWTIssuer       string        `toml:"jwt_issuer"`
	JWTExpiry       time.Duration `toml:"jwt_expiry"`
	BcryptCost      int           `toml:"bcrypt_cost"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	ExposeErrors    bool          `toml:"expose_errors"`
	LogLevel        string        `toml:"log_level"`
	LogFormat       string        `toml:"log_format"`
}

func defaults() Config {
	return Config{
		Port:            "8080",
		Env:             "development",
		StoreDriver:     DriverMongo,
		MongoURI:        "mongodb://127.0.0.1:27017",
		MongoDatabase:   "tasknest",
		DatabaseDSN:     "root:password@tcp(127.0.0.1:3306)/tasknest?parseTime=true",
		JWTIssuer:       "tasknest",
		JWTExpiry:       24 * time.Hour,
		BcryptCost:      10,
		RequestTimeout:  15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds the configuration from defaults, an optional TOML file named by
// CONFIG_FILE, and environment variables, in increasing order of precedence.
func Load() (Config, error) {
	cfg := defaults()
	exposeSet := false

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		exposeSet = md.IsDefined("expose_errors")
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.MongoURI = getEnv("MONGODB_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGODB_DATABASE", cfg.MongoDatabase)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTExpiry = getDuration("JWT_EXPIRY", cfg.JWTExpiry)
	cfg.BcryptCost = getInt("BCRYPT_COST", cfg.BcryptCost)
	cfg.RequestTimeout = getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.ShutdownTimeout = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	if v, ok := os.LookupEnv("EXPOSE_ERRORS"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parsing EXPOSE_ERRORS: %w", err)
		}
		cfg.ExposeErrors = parsed
	} else if !exposeSet {
		cfg.ExposeErrors = cfg.Env == "development"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("%w: %d", ErrInvalidBcryptCost, c.BcryptCost)
	}
	switch c.StoreDriver {
	case DriverMongo, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.StoreDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
