package pipeline

import "time"

// QuietWindow suppresses whole runs during a range of wall-clock hours in a
// fixed zone. Both bounds are inclusive. A start after the end wraps past
// midnight, so 22..5 covers 22:00 through 05:59.
type QuietWindow struct {
	Enabled   bool
	StartHour int
	EndHour   int
	Location  *time.Location
}

// DefaultQuietWindow is 02:00 through 05:59 in America/New_York. If the zone
// database is unavailable it falls back to UTC.
func DefaultQuietWindow() QuietWindow {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return QuietWindow{Enabled: true, StartHour: 2, EndHour: 5, Location: loc}
}

// IsQuiet reports whether t falls inside the window.
func (q QuietWindow) IsQuiet(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	if q.Location != nil {
		t = t.In(q.Location)
	}
	h := t.Hour()
	if q.StartHour <= q.EndHour {
		return h >= q.StartHour && h <= q.EndHour
	}
	return h >= q.StartHour || h <= q.EndHour
}
