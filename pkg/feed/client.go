package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// ErrEmptyFeed is returned when the feed response carries no alerts array.
var ErrEmptyFeed = errors.New("feed returned no alerts")

const maxFeedBytes = 16 << 20

// Snapshot is one poll result.
type Snapshot struct {
	// Alerts holds every alert that decoded. Alerts whose shape could not be
	// decoded are counted in Skipped and left out.
	Alerts []model.Alert
	// Raw is the alerts array exactly as received, used for change detection.
	Raw       json.RawMessage
	Skipped   int
	FetchedAt time.Time
}

// Client polls the alerts feed over HTTP.
type Client struct {
	url    string
	apiKey string
	client *http.Client
}

// NewClient creates a feed client. A zero timeout falls back to 10 seconds.
func NewClient(feedURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    feedURL,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves and decodes the current alert batch.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	q := u.Query()
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "transitpush/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	snap, err := Decode(body)
	if err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now().UTC()
	return snap, nil
}

// Decode parses a feed document. Individual alerts that fail to decode are
// skipped rather than failing the batch.
func Decode(body []byte) (*Snapshot, error) {
	var doc struct {
		Alerts json.RawMessage `json:"alerts"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	raw := bytes.TrimSpace(doc.Alerts)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrEmptyFeed
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode feed alerts: %w", err)
	}

	snap := &Snapshot{
		Alerts: make([]model.Alert, 0, len(items)),
		Raw:    raw,
	}
	for _, item := range items {
		var a model.Alert
		if err := json.Unmarshal(item, &a); err != nil {
			snap.Skipped++
			continue
		}
		snap.Alerts = append(snap.Alerts, a)
	}
	return snap, nil
}
