package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Redis    RedisConfig
	Database DatabaseConfig
	Teacher  TeacherConfig
	Training TrainingConfig
	Progress ProgressConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type TeacherConfig struct {
	OpenAIKey    string
	AnthropicKey string
	OllamaURL    string
}

type TrainingConfig struct {
	PricingPath       string // optional JSON pricing file; built-in table when empty
	WorkerConcurrency int
	DefaultBatchSize  int
}

type ProgressConfig struct {
	ChannelPrefix string
	WebhookURL    string
	WebhookSecret string
}

func Load() (*Config, error) {
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	workerConcurrency, err := getEnvInt("WORKER_CONCURRENCY", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_CONCURRENCY: %w", err)
	}

	batchSize, err := getEnvInt("TRAINING_BATCH_SIZE", 4)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAINING_BATCH_SIZE: %w", err)
	}

	cfg := &Config{
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Teacher: TeacherConfig{
			OpenAIKey:    getEnv("OPENAI_API_KEY", ""),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:    getEnv("OLLAMA_URL", "http://localhost:11434"),
		},
		Training: TrainingConfig{
			PricingPath:       getEnv("PRICING_PATH", ""),
			WorkerConcurrency: workerConcurrency,
			DefaultBatchSize:  batchSize,
		},
		Progress: ProgressConfig{
			ChannelPrefix: getEnv("PROGRESS_CHANNEL_PREFIX", "opd:progress"),
			WebhookURL:    getEnv("PROGRESS_WEBHOOK_URL", ""),
			WebhookSecret: getEnv("PROGRESS_WEBHOOK_SECRET", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.Progress.WebhookURL != "" && c.Progress.WebhookSecret == "" {
		missing = append(missing, "PROGRESS_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
