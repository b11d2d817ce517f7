package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/storage"
)

// Re-export for callers that only deal with dispatch.
var ErrAlreadyExists = storage.ErrAlreadyExists

// SentTracker answers "was this alert dispatched" against the sent store.
type SentTracker struct {
	store storage.SentStore
	now   func() time.Time
}

// NewSentTracker creates a tracker on top of store.
func NewSentTracker(store storage.SentStore) *SentTracker {
	return &SentTracker{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// HasSent reports whether a marker exists. An error means the answer is
// unknown.
func (t *SentTracker) HasSent(ctx context.Context, id model.AlertID) (bool, error) {
	found, err := t.store.Lookup(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check sent marker %s: %w", id, err)
	}
	return found, nil
}

// MarkSent durably records the alert as dispatched. It returns an error
// wrapping ErrAlreadyExists when another run marked it first.
func (t *SentTracker) MarkSent(ctx context.Context, a model.Alert) error {
	rec := &model.SentRecord{
		AlertID: a.ID,
		SentAt:  t.now(),
		Alert:   a,
	}
	if err := t.store.Create(ctx, rec); err != nil {
		return fmt.Errorf("mark %s sent: %w", a.ID, err)
	}
	return nil
}
