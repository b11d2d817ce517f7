package push

import (
	"fmt"
	"log/slog"
)

// Provider names accepted by New.
const (
	ProviderAirship = "airship"
	ProviderWebhook = "webhook"
	ProviderSlack   = "slack"
)

// Options selects and configures the sender.
type Options struct {
	Provider string

	AirshipURL   string
	AppKey       string
	MasterSecret string

	WebhookURL    string
	WebhookSecret string

	SlackWebhookURL string
	SlackChannel    string

	// RatePerSec throttles sends; 0 disables throttling.
	RatePerSec int
	// Audit, when set, records every push and its outcome.
	Audit *slog.Logger
}

// New builds the configured sender with throttling and auditing applied.
func New(opts Options) (Sender, error) {
	var (
		s   Sender
		err error
	)
	switch opts.Provider {
	case ProviderAirship, "":
		s, err = NewAirshipSender(opts.AirshipURL, opts.AppKey, opts.MasterSecret)
	case ProviderWebhook:
		s, err = NewWebhookSender(opts.WebhookURL, opts.WebhookSecret)
	case ProviderSlack:
		s, err = NewSlackSender(opts.SlackWebhookURL, opts.SlackChannel)
	default:
		return nil, fmt.Errorf("unknown push provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewLimited(NewAudited(s, opts.Audit), opts.RatePerSec), nil
}
