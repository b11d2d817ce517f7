package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/dispatch"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/feed"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/routes"
)

// Fetcher retrieves the current alert batch.
type Fetcher interface {
	Fetch(ctx context.Context) (*feed.Snapshot, error)
}

// Dispatcher runs the per-alert send protocol.
type Dispatcher interface {
	Dispatch(ctx context.Context, a model.Alert, tags []string) (dispatch.Outcome, error)
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Fetcher    Fetcher
	Gate       *feed.ChangeGate
	Filter     *Filter
	Resolver   *routes.Resolver
	Dispatcher Dispatcher
	Quiet      QuietWindow
	// Concurrency bounds how many alerts are dispatched at once.
	Concurrency int
	Logger      *slog.Logger
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Runner executes one poll-and-process cycle per call.
type Runner struct {
	cfg RunnerConfig
}

// NewRunner creates a runner. A nil Gate gets a fresh one.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Gate == nil {
		cfg.Gate = feed.NewChangeGate()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{cfg: cfg}
}

// RunOnce checks the quiet window, fetches the feed, drops an unchanged
// batch, filters and dispatches. The returned error is set only when the
// fetch failed; per-alert failures are recorded in the report.
func (r *Runner) RunOnce(ctx context.Context) (*Report, error) {
	now := r.cfg.Now()
	rep := &Report{RunID: uuid.New().String(), StartedAt: now.UTC()}
	log := r.cfg.Logger.With("run_id", rep.RunID)
	defer func() { rep.FinishedAt = r.cfg.Now().UTC() }()

	if r.cfg.Quiet.IsQuiet(now) {
		rep.Quiet = true
		log.Info("quiet hours, skipping run")
		return rep, nil
	}

	snap, err := r.cfg.Fetcher.Fetch(ctx)
	if err != nil {
		rep.Error = err.Error()
		log.Error("fetch feed failed", "error", err)
		return rep, fmt.Errorf("fetch feed: %w", err)
	}
	rep.Fetched = len(snap.Alerts)
	rep.Skipped = snap.Skipped
	if snap.Skipped > 0 {
		log.Warn("skipped malformed alerts", "count", snap.Skipped)
	}

	if !r.cfg.Gate.Admit(snap.Raw) {
		rep.Unchanged = true
		log.Debug("feed unchanged since last run")
		return rep, nil
	}

	worthy := r.filter(log, rep, snap.Alerts, now)
	rep.Alerts = r.dispatchAll(ctx, worthy)
	rep.tally()

	log.Info("run complete",
		"fetched", rep.Fetched,
		"notify_worthy", len(worthy),
		"dispatched", rep.Count(dispatch.OutcomeDispatched),
		"already_sent", rep.Count(dispatch.OutcomeAlreadySent),
	)
	return rep, nil
}

// Evaluate fetches and filters without consulting the change gate, the sent
// store or the sender.
func (r *Runner) Evaluate(ctx context.Context) (*Report, error) {
	now := r.cfg.Now()
	rep := &Report{RunID: uuid.New().String(), DryRun: true, StartedAt: now.UTC()}
	log := r.cfg.Logger.With("run_id", rep.RunID, "dry_run", true)
	defer func() { rep.FinishedAt = r.cfg.Now().UTC() }()

	rep.Quiet = r.cfg.Quiet.IsQuiet(now)

	snap, err := r.cfg.Fetcher.Fetch(ctx)
	if err != nil {
		rep.Error = err.Error()
		return rep, fmt.Errorf("fetch feed: %w", err)
	}
	rep.Fetched = len(snap.Alerts)
	rep.Skipped = snap.Skipped

	for _, a := range r.filter(log, rep, snap.Alerts, now) {
		rep.Alerts = append(rep.Alerts, AlertResult{
			AlertID: a.ID,
			Header:  a.HeaderText,
			Tags:    r.cfg.Resolver.TagsFor(a),
		})
	}
	return rep, nil
}

func (r *Runner) filter(log *slog.Logger, rep *Report, alerts []model.Alert, now time.Time) []model.Alert {
	worthy, counts := r.cfg.Filter.Apply(alerts, now)
	rep.Stages = counts
	for _, c := range counts {
		log.Debug("filter stage", "stage", c.Stage, "before", c.Before, "after", c.After)
	}
	return worthy
}

func (r *Runner) dispatchAll(ctx context.Context, alerts []model.Alert) []AlertResult {
	results := make([]AlertResult, len(alerts))
	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, a := range alerts {
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, a model.Alert) {
			defer func() { <-sem }()
			defer wg.Done()

			tags := r.cfg.Resolver.TagsFor(a)
			out, err := r.cfg.Dispatcher.Dispatch(ctx, a, tags)
			res := AlertResult{AlertID: a.ID, Header: a.HeaderText, Tags: tags, Outcome: &out}
			if err != nil {
				res.ErrorMsg = err.Error()
			}
			results[i] = res
		}(i, a)
	}
	wg.Wait()
	return results
}
