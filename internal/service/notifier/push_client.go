package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"acadtrack/pkg/circuitbreaker"
	"acadtrack/pkg/config"
)

// PushClient talks to the external push provider. Calls run behind a circuit
// breaker so a down provider degrades to logged failures instead of piling
// up timeouts.
type PushClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewPushClient(cfg config.PushConfig, logger *zap.Logger) *PushClient {
	return &PushClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 5 * time.Second},
		breaker:  circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:   logger,
	}
}

type pushRequest struct {
	UserID int    `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Send delivers one push message. Best-effort: callers log the error and move
// on, they never propagate it.
func (c *PushClient) Send(ctx context.Context, userID int, title, body string) error {
	return c.breaker.Execute(func() error {
		payload, err := json.Marshal(pushRequest{
			UserID: userID,
			Title:  title,
			Body:   body,
		})
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call push provider: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("push provider returned error: status %d", resp.StatusCode)
		}
		return nil
	})
}
