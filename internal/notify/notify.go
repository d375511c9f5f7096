// Package notify posts webhook events for submission attempts and
// terminal outcomes. A nil *Client is a no-op, so callers don't branch
// on whether a webhook is configured.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/subtensor-tools/regsniper/internal/engine"
)

// Client posts JSON events to a single webhook URL. Implements
// engine.Notifier.
type Client struct {
	url    string
	netuid uint16
	http   *http.Client
	log    *zap.Logger
}

// New returns nil when url is empty.
func New(url string, netuid uint16, log *zap.Logger) *Client {
	if url == "" {
		return nil
	}
	return &Client{
		url:    url,
		netuid: netuid,
		http:   &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

type event struct {
	Event     string `json:"event"`
	Netuid    uint16 `json:"netuid"`
	PriceRAO  uint64 `json:"price_rao,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Block     string `json:"block,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SubmissionAttempted reports that a registration was submitted at the
// given price.
func (c *Client) SubmissionAttempted(ctx context.Context, price uint64) {
	c.post(ctx, event{Event: "submission_attempted", PriceRAO: price})
}

// OutcomeReached reports the terminal outcome of the run.
func (c *Client) OutcomeReached(ctx context.Context, o engine.Outcome) {
	ev := event{Event: "outcome", Outcome: o.Kind.String(), Reason: o.Reason}
	if o.Receipt != nil {
		ev.Block = o.Receipt.BlockHash
	}
	c.post(ctx, ev)
}

// post is best-effort: webhook failures are logged, never propagated into
// the registration flow.
func (c *Client) post(ctx context.Context, ev event) {
	if c == nil {
		return
	}
	ev.Netuid = c.netuid
	ev.Timestamp = time.Now().Unix()

	body, err := json.Marshal(ev)
	if err != nil {
		c.log.Warn("webhook marshal failed", zap.Error(err))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.log.Warn("webhook request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("webhook post failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.log.Warn("webhook rejected",
			zap.String("event", ev.Event),
			zap.Int("status", resp.StatusCode))
	}
}
