package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/config"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/cost"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/database"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/progress"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/queue"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/queue/workers"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/runstore"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/student"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/teacher"
	"github.com/ArjunDivecha/Arjun-Final-Fine-Tuning/internal/trainer"
)

// responseMaxTokens caps the teacher's reply length per query.
const responseMaxTokens = 1024

// responseCacheTTL bounds how long a cached teacher response stays
// reusable across runs.
const responseCacheTTL = 24 * time.Hour

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	table, err := loadPricing(cfg)
	if err != nil {
		slog.Error("failed to load pricing table", "error", err)
		os.Exit(1)
	}

	// Run archive is optional. Without DATABASE_URL the worker still
	// trains; finished runs just are not persisted.
	var store *runstore.Store
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Warn("database unavailable, runs will not be archived", "error", err)
	} else {
		defer db.Close()
		if err := runstore.Migrate(ctx, db); err != nil {
			slog.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		store = runstore.NewStore(db)
	}

	// One Redis client serves both the progress pub/sub and the teacher
	// response cache. The queue holds its own connection inside asynq.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, progress pub/sub and response cache disabled", "error", err)
		rdb.Close()
		rdb = nil
	} else {
		defer rdb.Close()
	}

	sink := buildSink(cfg, rdb)
	if ws, ok := findWebhook(sink); ok {
		defer ws.Close()
	}

	manager := trainer.NewManager(table, providerFactory(cfg, rdb), studentFactory(), sink)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Training.WorkerConcurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	trainingWorker := workers.NewTrainingWorker(manager, store, cfg.Training.DefaultBatchSize)
	estimateWorker := workers.NewEstimateWorker(manager)

	if err := registry.RegisterFunc(queue.TypeTrainingRun, trainingWorker.ProcessTask); err != nil {
		slog.Error("register handler", "error", err)
		os.Exit(1)
	}
	if err := registry.RegisterFunc(queue.TypeCostEstimate, estimateWorker.ProcessTask); err != nil {
		slog.Error("register handler", "error", err)
		os.Exit(1)
	}

	slog.Info("starting training worker", "concurrency", cfg.Training.WorkerConcurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func loadPricing(cfg *config.Config) (cost.Table, error) {
	if cfg.Training.PricingPath == "" {
		return cost.DefaultTable(), nil
	}
	return cost.LoadTable(cfg.Training.PricingPath)
}

// buildSink layers the configured progress observers: always the log,
// Redis pub/sub when Redis answers, a signed webhook when configured.
func buildSink(cfg *config.Config, rdb *redis.Client) progress.MultiSink {
	sink := progress.MultiSink{progress.LogSink{}}
	if rdb != nil {
		sink = append(sink, progress.NewRedisSink(rdb, cfg.Progress.ChannelPrefix))
	}
	if cfg.Progress.WebhookURL != "" {
		sink = append(sink, progress.NewWebhookSink(cfg.Progress.WebhookURL, cfg.Progress.WebhookSecret))
	}
	return sink
}

func findWebhook(sink progress.MultiSink) (*progress.WebhookSink, bool) {
	for _, s := range sink {
		if ws, ok := s.(*progress.WebhookSink); ok {
			return ws, true
		}
	}
	return nil, false
}

func providerFactory(cfg *config.Config, rdb *redis.Client) trainer.ProviderFactory {
	return func(tc trainer.TeacherConfig, table cost.Table) (teacher.Provider, error) {
		switch tc.Kind {
		case trainer.TeacherCloud:
			client, err := cloudClient(cfg, tc)
			if err != nil {
				return nil, err
			}
			cloud, err := teacher.NewCloud(tc.ProviderID, tc.ModelID, table, client, teacher.CloudOptions{
				MaxRetries: tc.MaxRetries,
				Timeout:    tc.Timeout(),
				Backoff:    teacher.DefaultBackoff,
			})
			if err != nil {
				return nil, err
			}
			if rdb != nil {
				return teacher.NewCached(cloud, rdb, responseCacheTTL), nil
			}
			return cloud, nil
		case trainer.TeacherLocal:
			if tc.ProviderID != "ollama" {
				return nil, fmt.Errorf("unknown local provider %q", tc.ProviderID)
			}
			handle := teacher.NewOllamaHandle(cfg.Teacher.OllamaURL, tc.ModelID)
			return teacher.NewLocal(tc.ProviderID+"/"+tc.ModelID, handle), nil
		default:
			return nil, fmt.Errorf("unknown teacher kind %q", tc.Kind)
		}
	}
}

func cloudClient(cfg *config.Config, tc trainer.TeacherConfig) (teacher.Client, error) {
	switch tc.ProviderID {
	case "openai":
		if cfg.Teacher.OpenAIKey == "" {
			return nil, errors.New("OPENAI_API_KEY not set")
		}
		return teacher.NewOpenAIClient(cfg.Teacher.OpenAIKey, tc.ModelID, responseMaxTokens), nil
	case "anthropic":
		if cfg.Teacher.AnthropicKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY not set")
		}
		return teacher.NewAnthropicClient(cfg.Teacher.AnthropicKey, tc.ModelID, responseMaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown cloud provider %q", tc.ProviderID)
	}
}

func studentFactory() trainer.StudentFactory {
	return func(raw json.RawMessage) (student.Model, error) {
		return student.NewSimulatedFromConfig(raw)
	}
}
