package push

import (
	"context"
	"log/slog"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// Audited records every push handed to the inner sender, with its result.
type Audited struct {
	next Sender
	log  *slog.Logger
}

// NewAudited wraps next with an audit logger. A nil logger returns next.
func NewAudited(next Sender, log *slog.Logger) Sender {
	if log == nil {
		return next
	}
	return &Audited{next: next, log: log}
}

func (a *Audited) Name() string { return a.next.Name() }

func (a *Audited) Send(ctx context.Context, p model.Push) error {
	err := a.next.Send(ctx, p)

	attrs := []any{
		"alert_id", p.AlertID.String(),
		"tags", p.Tags,
		"body", p.Body,
		"expiry", p.ExpirySeconds,
		"sender", a.next.Name(),
	}
	if err != nil {
		a.log.ErrorContext(ctx, "push failed", append(attrs, "error", err)...)
		return err
	}
	a.log.InfoContext(ctx, "push sent", attrs...)
	return nil
}
