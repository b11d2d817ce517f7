package push

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// ErrDisabled is returned when a provider is selected but not configured.
var ErrDisabled = errors.New("push provider not configured")

// Sender delivers notifications to subscribers.
type Sender interface {
	// Name returns the sender identifier.
	Name() string

	// Send delivers a push. Implementations must be safe for concurrent use.
	Send(ctx context.Context, p model.Push) error
}
