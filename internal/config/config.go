package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

const (
	StageDev  = "dev"
	StageProd = "prod"
)

type Config struct {
	Stage           string
	Port            int
	LogLevel        string
	AllowedOrigins  []string
	ClientBuffer    int
	ShutdownTimeout time.Duration
}

func Default() Config {
	return Config{
		Stage:           StageDev,
		Port:            8080,
		LogLevel:        "info",
		ClientBuffer:    16,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the environment. Outside prod a .env file is loaded first when
// present; variables already set win over the file.
func Load() (Config, error) {
	if os.Getenv("STAGE") != StageProd {
		if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, keeping defaults for unset keys.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var err error

	if v := getenv("STAGE"); v != "" {
		cfg.Stage = v
	}
	if v := getenv("PORT"); v != "" {
		p, perr := strconv.Atoi(v)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("PORT: %w", perr))
		}
		cfg.Port = p
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if v := getenv("CLIENT_BUFFER"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("CLIENT_BUFFER: %w", perr))
		}
		cfg.ClientBuffer = n
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", perr))
		}
		cfg.ShutdownTimeout = d
	}

	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if c.Stage != StageDev && c.Stage != StageProd {
		err = multierr.Append(err, fmt.Errorf("STAGE must be %q or %q, got %q", StageDev, StageProd, c.Stage))
	}
	if c.Port <= 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if _, lerr := zapcore.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("LOG_LEVEL: %w", lerr))
	}
	if c.ClientBuffer < 1 {
		err = multierr.Append(err, fmt.Errorf("CLIENT_BUFFER must be positive, got %d", c.ClientBuffer))
	}
	if c.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout))
	}
	return err
}

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
