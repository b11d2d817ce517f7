package push

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// Limited throttles an inner sender to a fixed rate.
type Limited struct {
	next    Sender
	limiter *rate.Limiter
}

// NewLimited wraps next so that at most perSec pushes start per second.
// A non-positive perSec returns next unchanged.
func NewLimited(next Sender, perSec int) Sender {
	if perSec <= 0 {
		return next
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSec), perSec),
	}
}

func (l *Limited) Name() string { return l.next.Name() }

func (l *Limited) Send(ctx context.Context, p model.Push) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return l.next.Send(ctx, p)
}
