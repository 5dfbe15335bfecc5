package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pipecrm/pkg/circuitbreaker"
	"pipecrm/pkg/metrics"
	"pipecrm/pkg/trace"
)

// WebhookNotifier posts lead events to an external webhook endpoint.
// Calls go through a circuit breaker so a dead endpoint does not stall
// event consumption.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

// Notify posts the payload as JSON. Returns ErrCircuitBreakerOpen when
// the breaker has tripped.
func (n *WebhookNotifier) Notify(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	return n.breaker.Execute(func() error {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName(), traceID)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			metrics.RecordWebhookCallLatency(n.url, "error", time.Since(start))
			n.logger.Error("Webhook call failed", zap.String("url", n.url), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		metrics.RecordWebhookCallLatency(n.url, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
		if resp.StatusCode >= 300 {
			n.logger.Warn("Webhook returned non-success status",
				zap.String("url", n.url),
				zap.Int("status", resp.StatusCode),
			)
			return fmt.Errorf("webhook call failed: status %d", resp.StatusCode)
		}

		return nil
	})
}

// BreakerState exposes the circuit state for readiness reporting.
func (n *WebhookNotifier) BreakerState() circuitbreaker.State {
	return n.breaker.State()
}
