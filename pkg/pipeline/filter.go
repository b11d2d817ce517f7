package pipeline

import (
	"time"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/routes"
)

// Stage names, in the order they run.
const (
	StageMode     = "mode"
	StageEffect   = "effect"
	StageWindow   = "effective_window"
	StageSeverity = "severity"
	StageAudience = "audience"
)

// FilterConfig parameterises the notify-worthiness predicates.
type FilterConfig struct {
	Mode               string
	Effects            []string
	LeadTime           time.Duration
	ExcludedSeverities []string
}

// DefaultFilterConfig returns subway delays and detours, two hours of lead
// time, minor severity excluded.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Mode:               model.ModeSubway,
		Effects:            []string{model.EffectDelay, model.EffectDetour},
		LeadTime:           2 * time.Hour,
		ExcludedSeverities: []string{model.SeverityMinor},
	}
}

// StageCount is the alert count entering and leaving one stage.
type StageCount struct {
	Stage  string `json:"stage"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

type stage struct {
	name string
	keep func(a model.Alert, now time.Time) bool
}

// Filter narrows a batch to notify-worthy alerts. Every predicate is total:
// a malformed alert is excluded, never an error.
type Filter struct {
	stages []stage
}

// NewFilter builds the five-stage filter. resolver decides the final stage.
func NewFilter(cfg FilterConfig, resolver *routes.Resolver) *Filter {
	effects := toSet(cfg.Effects)
	excluded := toSet(cfg.ExcludedSeverities)
	lead := cfg.LeadTime

	return &Filter{stages: []stage{
		{StageMode, func(a model.Alert, _ time.Time) bool {
			for _, svc := range a.Services() {
				if svc.Mode == cfg.Mode {
					return true
				}
			}
			return false
		}},
		{StageEffect, func(a model.Alert, _ time.Time) bool {
			_, ok := effects[a.EffectName]
			return ok
		}},
		{StageWindow, func(a model.Alert, now time.Time) bool {
			return nearEffectPeriod(a, now, lead)
		}},
		{StageSeverity, func(a model.Alert, _ time.Time) bool {
			_, ok := excluded[a.Severity]
			return !ok
		}},
		{StageAudience, func(a model.Alert, _ time.Time) bool {
			return len(resolver.TagsFor(a)) > 0
		}},
	}}
}

// Apply runs the stages in order and returns the survivors with per-stage
// counts.
func (f *Filter) Apply(alerts []model.Alert, now time.Time) ([]model.Alert, []StageCount) {
	current := alerts
	counts := make([]StageCount, 0, len(f.stages))

	for _, st := range f.stages {
		kept := make([]model.Alert, 0, len(current))
		for _, a := range current {
			if st.keep(a, now) {
				kept = append(kept, a)
			}
		}
		counts = append(counts, StageCount{Stage: st.name, Before: len(current), After: len(kept)})
		current = kept
	}
	return current, counts
}

// nearEffectPeriod reports whether the notification window of any effect
// period has opened. The window opens lead before the period start and has
// no upper bound.
func nearEffectPeriod(a model.Alert, now time.Time, lead time.Duration) bool {
	for _, p := range a.EffectPeriods {
		if !p.Start.Valid {
			continue
		}
		opens := p.Start.Time().Add(-lead)
		if !now.Before(opens) {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
