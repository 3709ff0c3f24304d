package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes progress events on a per-run pub/sub channel
// (<prefix>:<runID>) for the control plane or UI to subscribe to.
type RedisSink struct {
	client *redis.Client
	prefix string
}

func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "opd:progress"
	}
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) Emit(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("marshal progress event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	channel := s.prefix + ":" + e.RunID
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		slog.Warn("publish progress event failed", "channel", channel, "error", err)
	}
}
