package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/pipeline"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestQuietWindow_InclusiveBounds(t *testing.T) {
	loc := newYork(t)
	q := pipeline.QuietWindow{Enabled: true, StartHour: 2, EndHour: 5, Location: loc}

	tests := []struct {
		hour, min int
		want      bool
	}{
		{1, 59, false},
		{2, 0, true},
		{3, 30, true},
		{5, 59, true},
		{6, 0, false},
		{14, 0, false},
	}
	for _, tt := range tests {
		at := time.Date(2026, 7, 15, tt.hour, tt.min, 0, 0, loc)
		assert.Equal(t, tt.want, q.IsQuiet(at), "%02d:%02d", tt.hour, tt.min)
	}
}

func TestQuietWindow_UsesConfiguredZone(t *testing.T) {
	q := pipeline.QuietWindow{Enabled: true, StartHour: 2, EndHour: 5, Location: newYork(t)}

	// 07:00 UTC in July is 03:00 in New York.
	assert.True(t, q.IsQuiet(time.Date(2026, 7, 15, 7, 0, 0, 0, time.UTC)))
	// 03:00 UTC is 23:00 the previous day in New York.
	assert.False(t, q.IsQuiet(time.Date(2026, 7, 15, 3, 0, 0, 0, time.UTC)))
}

func TestQuietWindow_WrapsMidnight(t *testing.T) {
	q := pipeline.QuietWindow{Enabled: true, StartHour: 22, EndHour: 1, Location: time.UTC}

	assert.True(t, q.IsQuiet(time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)))
	assert.True(t, q.IsQuiet(time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)))
	assert.True(t, q.IsQuiet(time.Date(2026, 1, 1, 1, 59, 0, 0, time.UTC)))
	assert.False(t, q.IsQuiet(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestQuietWindow_Disabled(t *testing.T) {
	q := pipeline.QuietWindow{Enabled: false, StartHour: 0, EndHour: 23}
	assert.False(t, q.IsQuiet(time.Now()))
}

func TestDefaultQuietWindow(t *testing.T) {
	q := pipeline.DefaultQuietWindow()
	assert.True(t, q.Enabled)
	assert.Equal(t, 2, q.StartHour)
	assert.Equal(t, 5, q.EndHour)
}
