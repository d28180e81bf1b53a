package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CORSAllowedOrigins lists the origins browsers may call from; "*" allows any.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

type JWTConfig struct {
	// Secret signs bearer tokens; empty disables them.
	Secret     string        `yaml:"secret"`
	Expiration time.Duration `yaml:"expiration"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

type Config struct {
	Server        ServerConfig  `yaml:"server"`
	DatabaseURL   string        `yaml:"database_url"`
	LogLevel      string        `yaml:"log_level"`
	JWT           JWTConfig     `yaml:"jwt"`
	SearchHorizon time.Duration `yaml:"search_horizon"`
	Google        GoogleConfig  `yaml:"google"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               "8080",
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       10 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		LogLevel:      "info",
		JWT:           JWTConfig{Expiration: 24 * time.Hour},
		SearchHorizon: 87600 * time.Hour,
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if
// set), then the environment. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL required")
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JWT.Secret = getEnv("JWT_HMAC_SECRET", c.JWT.Secret)
	c.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	c.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URL", c.Google.RedirectURL)
	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = splitList(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &c.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout},
		{"SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
		{"JWT_EXPIRATION", &c.JWT.Expiration},
		{"SEARCH_HORIZON", &c.SearchHorizon},
	}
	for _, d := range durations {
		v, err := getEnvAsDuration(d.key, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
