package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"verdict_backend/internal/tiers"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST"`
	Port int    `yaml:"port" env:"SERVER_PORT"`
	Env  string `yaml:"env" env:"SERVER_ENV"`
	// Пусто - разрешены все origin (CORS и websocket)
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	// postgres | memory
	Driver       string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN          string `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
	TTL    int    `yaml:"ttl" env:"JWT_TTL"` // минуты
}

type ModerationConfig struct {
	Enabled          bool          `yaml:"enabled" env:"MODERATION_ENABLED"`
	APIKey           string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL          string        `yaml:"base_url" env:"OPENAI_BASE_URL"`
	Model            string        `yaml:"model" env:"MODERATION_MODEL"`
	Timeout          time.Duration `yaml:"timeout" env:"MODERATION_TIMEOUT"`
	BlockedTerms     []string      `yaml:"blocked_terms" env:"MODERATION_BLOCKED_TERMS" envSeparator:","`
	MaxContextLength int           `yaml:"max_context_length" env:"MODERATION_MAX_CONTEXT_LENGTH"`
}

type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	Requests int64         `yaml:"requests" env:"RATE_LIMIT_REQUESTS"`
	Period   time.Duration `yaml:"period" env:"RATE_LIMIT_PERIOD"`
	// memory | redis
	Storage  string `yaml:"storage" env:"RATE_LIMIT_STORAGE"`
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

type RoutingConfig struct {
	Timeout       time.Duration `yaml:"timeout" env:"ROUTING_TIMEOUT"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"ROUTING_SWEEP_INTERVAL"`
	StaleAfter    time.Duration `yaml:"stale_after" env:"ROUTING_STALE_AFTER"`
}

type EventsConfig struct {
	Buffer  int `yaml:"buffer" env:"EVENTS_BUFFER"`
	Workers int `yaml:"workers" env:"EVENTS_WORKERS"`
}

type VerdictsConfig struct {
	MinReasoningLength int `yaml:"min_reasoning_length" env:"VERDICTS_MIN_REASONING_LENGTH"`
	MinFeedbackLength  int `yaml:"min_feedback_length" env:"VERDICTS_MIN_FEEDBACK_LENGTH"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Moderation ModerationConfig `yaml:"moderation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Routing    RoutingConfig    `yaml:"routing"`
	Events     EventsConfig     `yaml:"events"`
	Verdicts   VerdictsConfig   `yaml:"verdicts"`

	// Переопределение каталога тиров. Пусто - tiers.DefaultTiers().
	Tiers       []tiers.TierConfig `yaml:"tiers" env:"-"`
	LegacyTiers []string           `yaml:"legacy_tiers" env:"LEGACY_TIERS" envSeparator:","`
}

var AppConfig *Config

// Defaults возвращает конфиг со значениями по умолчанию
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 4000, Env: "development", ShutdownTimeout: 15 * time.Second},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 20,
		},
		JWT: JWTConfig{TTL: 60},
		Moderation: ModerationConfig{
			Enabled:          true,
			Model:            "omni-moderation-latest",
			Timeout:          3 * time.Second,
			MaxContextLength: 5000,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 30,
			Period:   time.Minute,
			Storage:  "memory",
		},
		Routing: RoutingConfig{
			Timeout:       5 * time.Second,
			SweepInterval: 5 * time.Minute,
			StaleAfter:    2 * time.Minute,
		},
		Events:   EventsConfig{Buffer: 256, Workers: 4},
		Verdicts: VerdictsConfig{MinReasoningLength: 20, MinFeedbackLength: 10},
	}
}

// Load собирает конфиг: значения по умолчанию, затем YAML-файл (если есть),
// затем переменные окружения (.env и .env.local подхватываются godotenv).
func Load(path string) (*Config, error) {
	cfg, err := LoadUnvalidated(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated - для CLI-команд, которым не нужны БД и секреты
func LoadUnvalidated(path string) (*Config, error) {
	if err := loadEnvFiles(".env", ".env.local"); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	cfg := Defaults()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Режим только-переменные-окружения (тесты, контейнеры)
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Validate проверяет согласованность секций
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.url is required for postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if err := c.RateLimit.Validate(); err != nil {
		return err
	}
	if err := c.Moderation.Validate(); err != nil {
		return err
	}
	if c.Events.Buffer <= 0 || c.Events.Workers <= 0 {
		return errors.New("events.buffer and events.workers must be positive")
	}
	return nil
}

func (r RateLimitConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Requests <= 0 || r.Period <= 0 {
		return errors.New("rate_limit.requests and rate_limit.period must be positive")
	}
	switch strings.ToLower(r.Storage) {
	case "memory":
	case "redis":
		if r.RedisURL == "" {
			return errors.New("rate_limit.redis_url is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown rate_limit.storage %q", r.Storage)
	}
	return nil
}

func (m ModerationConfig) Validate() error {
	if m.Timeout <= 0 {
		return errors.New("moderation.timeout must be positive")
	}
	if m.MaxContextLength <= 0 {
		return errors.New("moderation.max_context_length must be positive")
	}
	return nil
}

// IsProduction - в продакшене скрываем внутренние ошибки
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LoadConfig загружает глобальный конфиг или завершает процесс
func LoadConfig() {
	cfg, err := Load("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
