package progress

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookSink delivers progress events to an external URL over HTTP.
// Delivery is asynchronous through a bounded queue so a slow receiver
// never stalls the training loop; overflow drops the event with a
// warning. Payloads are HMAC-SHA256 signed.
type WebhookSink struct {
	url        string
	secret     string
	httpClient *http.Client
	events     chan Event
}

func NewWebhookSink(url, secret string) *WebhookSink {
	s := &WebhookSink{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		events: make(chan Event, 1000),
	}
	go s.processLoop()
	return s
}

func (s *WebhookSink) Emit(e Event) {
	select {
	case s.events <- e:
	default:
		slog.Warn("progress webhook queue full, dropping event", "run_id", e.RunID, "step", e.Step)
	}
}

// Close stops the delivery loop. Events already queued are delivered.
func (s *WebhookSink) Close() {
	close(s.events)
}

func (s *WebhookSink) processLoop() {
	for e := range s.events {
		s.deliver(e)
	}
}

func (s *WebhookSink) deliver(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("marshal progress event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(payload))
	if err != nil {
		slog.Error("progress webhook request creation failed", "error", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Progress-Event", "training.step")
	req.Header.Set("X-Progress-Signature", sign(payload, s.secret))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Warn("progress webhook delivery failed", "run_id", e.RunID, "step", e.Step, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Warn("progress webhook received non-success response", "status", resp.StatusCode, "run_id", e.RunID)
	}
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}
