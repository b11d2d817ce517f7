package push

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// WebhookSender delivers each push as one JSON POST, for receivers that fan
// out to their own channels.
type WebhookSender struct {
	url    string
	secret []byte
	client *http.Client
	now    func() time.Time
}

// webhookPush is the request body. Tags is never null.
type webhookPush struct {
	AlertID string   `json:"alert_id"`
	Tags    []string `json:"tags"`
	Body    string   `json:"body"`
	Expiry  int      `json:"expiry"`
	SentAt  string   `json:"sent_at"`
}

// NewWebhookSender creates a webhook sender. A non-empty secret signs each
// body with HMAC-SHA256 in X-Signature-256.
func NewWebhookSender(url, secret string) (*WebhookSender, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook: %w", ErrDisabled)
	}
	s := &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	if secret != "" {
		s.secret = []byte(secret)
	}
	return s, nil
}

func (w *WebhookSender) Name() string { return "webhook" }

// Send posts the push. The alert id doubles as Idempotency-Key so a receiver
// can drop a redelivery.
func (w *WebhookSender) Send(ctx context.Context, p model.Push) error {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	body, err := json.Marshal(webhookPush{
		AlertID: p.AlertID.String(),
		Tags:    tags,
		Body:    p.Body,
		Expiry:  p.ExpirySeconds,
		SentAt:  w.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode webhook push %s: %w", p.AlertID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "transitpush/1.0")
	req.Header.Set("Idempotency-Key", p.AlertID.String())
	if w.secret != nil {
		req.Header.Set("X-Signature-256", "sha256="+w.sign(body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook push %s: %w", p.AlertID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook push %s: status %d", p.AlertID, resp.StatusCode)
	}
	return nil
}

func (w *WebhookSender) sign(body []byte) string {
	mac := hmac.New(sha256.New, w.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
