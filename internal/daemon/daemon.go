package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	sdnotify "github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/pipeline"
)

// Cycle is one poll-and-process run.
type Cycle interface {
	RunOnce(ctx context.Context) (*pipeline.Report, error)
}

// Daemon runs a Cycle immediately and then on a fixed cadence. Cycles may
// overlap when one outlasts the interval; the sent store serialises them.
type Daemon struct {
	cycle    Cycle
	interval time.Duration
	loc      *time.Location
	logger   *slog.Logger

	mu   sync.RWMutex
	last *pipeline.Report
	runs int
}

// New creates a daemon. A nil location uses UTC.
func New(cycle Cycle, interval time.Duration, loc *time.Location, logger *slog.Logger) *Daemon {
	if loc == nil {
		loc = time.UTC
	}
	return &Daemon{
		cycle:    cycle,
		interval: interval,
		loc:      loc,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled. A cycle in progress at cancellation is
// allowed to finish before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	// Cycles are not cancelled by shutdown.
	cycleCtx := context.WithoutCancel(ctx)

	c := cron.New(cron.WithLocation(d.loc), cron.WithLogger(cronLogger{d.logger}))
	c.Schedule(cron.Every(d.interval), cron.FuncJob(func() { d.runCycle(cycleCtx) }))

	d.runCycle(cycleCtx)
	c.Start()
	d.logger.Info("daemon started", "interval", d.interval.String(), "tz", d.loc.String())
	d.notify(sdnotify.SdNotifyReady)

	<-ctx.Done()

	d.notify(sdnotify.SdNotifyStopping)
	d.logger.Info("daemon stopping, waiting for running cycle")
	<-c.Stop().Done()
	d.logger.Info("daemon stopped")
	return nil
}

// LastReport returns the report of the most recently finished cycle.
func (d *Daemon) LastReport() *pipeline.Report {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}

// Runs returns how many cycles have finished.
func (d *Daemon) Runs() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.runs
}

func (d *Daemon) runCycle(ctx context.Context) {
	rep, err := d.cycle.RunOnce(ctx)
	if err != nil {
		d.logger.Warn("cycle ended early", "error", err)
	}

	d.mu.Lock()
	d.runs++
	if rep != nil {
		d.last = rep
	}
	d.mu.Unlock()
}

func (d *Daemon) notify(state string) {
	sent, err := sdnotify.SdNotify(false, state)
	if err != nil {
		d.logger.Debug("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		d.logger.Debug("sd_notify sent", "state", state)
	}
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
