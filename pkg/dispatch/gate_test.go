package dispatch_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/dispatch"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/storage"
)

// fakeStore records calls in order and can fail either operation.
type fakeStore struct {
	mu        sync.Mutex
	markers   map[model.AlertID]model.SentRecord
	calls     []string
	lookupErr error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{markers: make(map[model.AlertID]model.SentRecord)}
}

func (f *fakeStore) Lookup(_ context.Context, id model.AlertID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "lookup")
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	_, ok := f.markers[id]
	return ok, nil
}

func (f *fakeStore) Create(_ context.Context, rec *model.SentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.markers[rec.AlertID]; ok {
		return storage.ErrAlreadyExists
	}
	f.markers[rec.AlertID] = *rec
	return nil
}

func (f *fakeStore) List(context.Context, int) ([]model.SentRecord, error) { return nil, nil }
func (f *fakeStore) Close() error                                          { return nil }

type fakeSender struct {
	mu    sync.Mutex
	store *fakeStore
	sent  []model.Push
	err   error
}

func (s *fakeSender) Name() string { return "fake" }

func (s *fakeSender) Send(_ context.Context, p model.Push) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		s.store.mu.Lock()
		s.store.calls = append(s.store.calls, "send")
		s.store.mu.Unlock()
	}
	s.sent = append(s.sent, p)
	return s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newGate(store storage.SentStore, sender *fakeSender) *dispatch.Gate {
	return dispatch.NewGate(dispatch.NewSentTracker(store), sender, testLogger())
}

func redAlert(id string) model.Alert {
	return model.Alert{ID: model.AlertID(id), HeaderText: "Red Line delays"}
}

var redTags = []string{"MBTA Line Red"}

func TestGate_Dispatch(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{store: store}
	g := newGate(store, sender)

	out, err := g.Dispatch(context.Background(), redAlert("1"), redTags)
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomeDispatched, out)

	assert.Equal(t, []string{"lookup", "create", "send"}, store.calls)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, redTags, sender.sent[0].Tags)
	assert.Equal(t, "Red Line delays", sender.sent[0].Body)
	assert.Equal(t, 3600, sender.sent[0].ExpirySeconds)
}

func TestGate_EmptyTagsNeverTouchesStore(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{store: store}
	g := newGate(store, sender)

	for _, tags := range [][]string{nil, {}} {
		out, err := g.Dispatch(context.Background(), redAlert("1"), tags)
		require.NoError(t, err)
		assert.Equal(t, dispatch.OutcomeNoAudience, out)
	}
	assert.Empty(t, store.calls)
	assert.Empty(t, store.markers)
	assert.Empty(t, sender.sent)
}

func TestGate_AlreadySentNeverSends(t *testing.T) {
	store := newFakeStore()
	store.markers["1"] = model.SentRecord{AlertID: "1"}
	sender := &fakeSender{store: store}
	g := newGate(store, sender)

	out, err := g.Dispatch(context.Background(), redAlert("1"), redTags)
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomeAlreadySent, out)
	assert.Equal(t, []string{"lookup"}, store.calls)
	assert.Empty(t, sender.sent)
}

func TestGate_LookupFailureSkips(t *testing.T) {
	store := newFakeStore()
	store.lookupErr = errors.New("connection refused")
	sender := &fakeSender{store: store}
	g := newGate(store, sender)

	out, err := g.Dispatch(context.Background(), redAlert("1"), redTags)
	assert.Error(t, err)
	assert.Equal(t, dispatch.OutcomeStoreUnavailable, out)
	assert.Equal(t, []string{"lookup"}, store.calls)
	assert.Empty(t, sender.sent)
}

func TestGate_MarkFailureNeverSends(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("disk full")
	sender := &fakeSender{store: store}
	g := newGate(store, sender)

	out, err := g.Dispatch(context.Background(), redAlert("1"), redTags)
	assert.Error(t, err)
	assert.Equal(t, dispatch.OutcomeMarkFailed, out)
	assert.False(t, out.Marked())
	assert.Equal(t, []string{"lookup", "create"}, store.calls)
	assert.Empty(t, sender.sent)
}

func TestGate_SendFailureKeepsMarker(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{store: store, err: errors.New("503")}
	g := newGate(store, sender)
	ctx := context.Background()

	out, err := g.Dispatch(ctx, redAlert("1"), redTags)
	assert.Error(t, err)
	assert.Equal(t, dispatch.OutcomeSendFailed, out)
	assert.True(t, out.Marked())
	assert.Contains(t, store.markers, model.AlertID("1"))

	// No retry on the next run.
	out, err = g.Dispatch(ctx, redAlert("1"), redTags)
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomeAlreadySent, out)
	assert.Len(t, sender.sent, 1)
}

// racingStore reports "not found" on lookup, as a concurrent run would see
// before the other run's marker lands.
type racingStore struct{ *fakeStore }

func (r racingStore) Lookup(context.Context, model.AlertID) (bool, error) { return false, nil }

func TestGate_ConcurrentMarkerWins(t *testing.T) {
	inner := newFakeStore()
	inner.markers["1"] = model.SentRecord{AlertID: "1"}
	sender := &fakeSender{}
	g := newGate(racingStore{inner}, sender)

	out, err := g.Dispatch(context.Background(), redAlert("1"), redTags)
	require.NoError(t, err)
	assert.Equal(t, dispatch.OutcomeAlreadySent, out)
	assert.Empty(t, sender.sent)
}

func TestGate_OverlappingRunsSendOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sent.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sender := &fakeSender{}
	g := newGate(store, sender)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Dispatch(context.Background(), redAlert("77"), redTags)
		}()
	}
	wg.Wait()

	assert.Len(t, sender.sent, 1)
}

func TestOutcome_String(t *testing.T) {
	names := make([]string, 0)
	for _, o := range dispatch.Outcomes() {
		names = append(names, o.String())
	}
	assert.Equal(t, []string{
		"no_audience", "already_sent", "store_unavailable",
		"mark_failed", "dispatched", "send_failed",
	}, names)
	assert.Equal(t, "outcome(99)", dispatch.Outcome(99).String())
}
