package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/push"
)

// Gate sends each alert at most once. For a single alert it always runs
// lookup, then mark, then send; a failed send does not remove the marker.
type Gate struct {
	tracker *SentTracker
	sender  push.Sender
	logger  *slog.Logger
}

// NewGate creates a dispatch gate.
func NewGate(tracker *SentTracker, sender push.Sender, logger *slog.Logger) *Gate {
	return &Gate{
		tracker: tracker,
		sender:  sender,
		logger:  logger,
	}
}

// Dispatch runs the per-alert protocol. The returned error describes the
// failure behind OutcomeStoreUnavailable, OutcomeMarkFailed and
// OutcomeSendFailed; it is informational and never needs to stop the caller.
func (g *Gate) Dispatch(ctx context.Context, a model.Alert, tags []string) (Outcome, error) {
	log := g.logger.With("alert_id", a.ID.String())

	if len(tags) == 0 {
		log.Info("no audience for alert, skipping")
		return OutcomeNoAudience, nil
	}

	sent, err := g.tracker.HasSent(ctx, a.ID)
	if err != nil {
		log.Warn("sent store unavailable, skipping alert", "error", err)
		return OutcomeStoreUnavailable, err
	}
	if sent {
		log.Debug("alert already sent")
		return OutcomeAlreadySent, nil
	}

	if err := g.tracker.MarkSent(ctx, a); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			log.Debug("alert marked by a concurrent run")
			return OutcomeAlreadySent, nil
		}
		log.Error("mark sent failed, not sending", "error", err)
		return OutcomeMarkFailed, err
	}

	if err := g.sender.Send(ctx, model.NewPush(a, tags)); err != nil {
		log.Error("send push failed",
			"sender", g.sender.Name(),
			"tags", tags,
			"error", err,
		)
		return OutcomeSendFailed, err
	}

	log.Info("push dispatched", "sender", g.sender.Name(), "tags", tags)
	return OutcomeDispatched, nil
}
