// Package config loads runtime configuration from the environment.
//
// Order of precedence, lowest first: struct defaults, the YAML file named by
// CONFIG_PATH (if any), a .env file in the working directory (if any), and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const minSecretLength = 16

// Config holds every tunable of the server.
type Config struct {
	AppEnv string `yaml:"app_env" env:"APP_ENV" env-default:"development"`
	Port   int    `yaml:"port" env:"PORT" env-default:"8080"`
	DBPath string `yaml:"db_path" env:"DB_PATH" env-default:"data/marketplace.db"`

	Auth struct {
		JWTSecret  string        `yaml:"jwt_secret" env:"JWT_SECRET"`
		TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"1440h"`
		BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	} `yaml:"log"`

	Events struct {
		RabbitMQURL string        `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
		Exchange    string        `yaml:"exchange" env:"EVENT_EXCHANGE" env-default:"marketplace.events"`
		Timeout     time.Duration `yaml:"timeout" env:"EVENT_TIMEOUT" env-default:"5s"`
	} `yaml:"events"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	} `yaml:"redis"`

	RateLimit struct {
		LoginLimit  int           `yaml:"login_limit" env:"LOGIN_RATE_LIMIT" env-default:"10"`
		LoginWindow time.Duration `yaml:"login_window" env:"LOGIN_RATE_WINDOW" env-default:"1m"`
		GlobalRPM   int           `yaml:"global_rpm" env:"RATE_LIMIT_RPM" env-default:"300"`
	} `yaml:"rate_limit"`
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have no safe default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < minSecretLength {
		return fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("config: DB_PATH must not be empty")
	}
	return nil
}
