package pipeline

import (
	"time"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/dispatch"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
)

// AlertResult is what happened to one notify-worthy alert.
type AlertResult struct {
	AlertID  model.AlertID     `json:"alert_id"`
	Header   string            `json:"header"`
	Tags     []string          `json:"tags"`
	Outcome  *dispatch.Outcome `json:"outcome,omitempty"`
	ErrorMsg string            `json:"error,omitempty"`
}

// Report summarises one poll-and-process cycle.
type Report struct {
	RunID      string    `json:"run_id"`
	DryRun     bool      `json:"dry_run,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Quiet     bool `json:"quiet"`
	Unchanged bool `json:"unchanged"`

	Fetched int          `json:"fetched"`
	Skipped int          `json:"skipped_malformed"`
	Stages  []StageCount `json:"stages,omitempty"`

	Alerts   []AlertResult  `json:"alerts,omitempty"`
	Outcomes map[string]int `json:"outcomes,omitempty"`

	Error string `json:"error,omitempty"`
}

// Count returns how many alerts ended with outcome o.
func (r *Report) Count(o dispatch.Outcome) int {
	if r == nil {
		return 0
	}
	return r.Outcomes[o.String()]
}

func (r *Report) tally() {
	r.Outcomes = make(map[string]int)
	for _, a := range r.Alerts {
		if a.Outcome != nil {
			r.Outcomes[a.Outcome.String()]++
		}
	}
}
