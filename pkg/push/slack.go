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

// SlackSender relays pushes to a Slack incoming webhook, for operators who
// want to watch what riders receive.
type SlackSender struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackSender creates a Slack webhook sender.
func NewSlackSender(webhookURL, channel string) (*SlackSender, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: %w", ErrDisabled)
	}
	return &SlackSender{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

func (s *SlackSender) Name() string { return "slack" }

func (s *SlackSender) Send(ctx context.Context, p model.Push) error {
	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color: "#ff9900",
				Title: "Transit alert",
				Text:  p.Body,
				Fields: []slackField{
					{Title: "Lines", Value: strings.Join(p.Tags, ", "), Short: true},
					{Title: "Alert ID", Value: p.AlertID.String(), Short: true},
				},
				Footer: "transitpush",
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
