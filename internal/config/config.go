package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultUpstreamURL    = "https://wmjhsuoycqmjacablbpjyyzxwq0uohnz.lambda-url.us-east-1.on.aws/"
	DefaultClimateBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Proxy   ProxyConfig
	Climate ClimateConfig
	Logging LoggingConfig
}

// ServerConfig configures the simulation HTTP API
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ProxyConfig configures the CORS forwarding proxy
type ProxyConfig struct {
	Host        string
	Port        int
	UpstreamURL string
	Timeout     time.Duration
	StaticDir   string
}

// ClimateConfig configures the NASA POWER client
type ClimateConfig struct {
	BaseURL   string
	Community string
	Timeout   time.Duration
}

type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment take precedence over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var errs []string
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            intVar("SERVER_PORT", 8080),
			ReadTimeout:     durationVar("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    durationVar("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     durationVar("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: durationVar("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Proxy: ProxyConfig{
			Host:        getEnv("PROXY_HOST", ""),
			Port:        intVar("PROXY_PORT", 8001),
			UpstreamURL: getEnv("PROXY_UPSTREAM_URL", DefaultUpstreamURL),
			Timeout:     durationVar("PROXY_TIMEOUT", 30*time.Second),
			StaticDir:   getEnv("PROXY_STATIC_DIR", "."),
		},
		Climate: ClimateConfig{
			BaseURL:   getEnv("NASA_POWER_URL", DefaultClimateBaseURL),
			Community: getEnv("NASA_POWER_COMMUNITY", "AG"),
			Timeout:   durationVar("NASA_POWER_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Validate checks the configuration for values the binaries cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Proxy.Port <= 0 || c.Proxy.Port > 65535 {
		return fmt.Errorf("invalid proxy port: %d", c.Proxy.Port)
	}
	if err := validateURL("PROXY_UPSTREAM_URL", c.Proxy.UpstreamURL); err != nil {
		return err
	}
	if err := validateURL("NASA_POWER_URL", c.Climate.BaseURL); err != nil {
		return err
	}
	if c.Climate.Community == "" {
		return fmt.Errorf("NASA_POWER_COMMUNITY is required")
	}
	if c.Proxy.Timeout <= 0 || c.Climate.Timeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a duration", key, value)
	}
	return d, nil
}
