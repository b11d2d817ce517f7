package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// DefaultAirshipURL is the Airship (Urban Airship) API root.
const DefaultAirshipURL = "https://go.urbanairship.com"

// AirshipSender pushes iOS notifications through the Airship v3 API,
// targeting devices by tag.
type AirshipSender struct {
	baseURL      string
	appKey       string
	masterSecret string
	client       *http.Client
}

// NewAirshipSender creates an Airship sender. An empty baseURL uses the
// public API.
func NewAirshipSender(baseURL, appKey, masterSecret string) (*AirshipSender, error) {
	if appKey == "" || masterSecret == "" {
		return nil, fmt.Errorf("airship: %w", ErrDisabled)
	}
	if baseURL == "" {
		baseURL = DefaultAirshipURL
	}
	return &AirshipSender{
		baseURL:      strings.TrimRight(baseURL, "/"),
		appKey:       appKey,
		masterSecret: masterSecret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (a *AirshipSender) Name() string { return "airship" }

func (a *AirshipSender) Send(ctx context.Context, p model.Push) error {
	if len(p.Tags) == 0 {
		return fmt.Errorf("airship: push %s has no audience tags", p.AlertID)
	}

	body, err := json.Marshal(newAirshipPayload(p))
	if err != nil {
		return fmt.Errorf("marshal airship payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/push/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create airship request: %w", err)
	}
	req.SetBasicAuth(a.appKey, a.masterSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.urbanairship+json; version=3")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("send airship push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("airship returned status %d", resp.StatusCode)
	}
	return nil
}

type airshipPayload struct {
	Audience     airshipAudience     `json:"audience"`
	Notification airshipNotification `json:"notification"`
	DeviceTypes  []string            `json:"device_types"`
}

type airshipAudience struct {
	Tag []string `json:"tag"`
}

type airshipNotification struct {
	IOS airshipIOS `json:"ios"`
}

type airshipIOS struct {
	Alert  string `json:"alert"`
	Expiry int    `json:"expiry"`
}

func newAirshipPayload(p model.Push) airshipPayload {
	expiry := p.ExpirySeconds
	if expiry <= 0 {
		expiry = model.DefaultExpirySeconds
	}
	return airshipPayload{
		Audience: airshipAudience{Tag: p.Tags},
		Notification: airshipNotification{
			IOS: airshipIOS{Alert: p.Body, Expiry: expiry},
		},
		DeviceTypes: []string{"ios"},
	}
}
