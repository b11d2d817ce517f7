package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Effect names reported by the feed that riders are notified about.
const (
	EffectDelay  = "Delay"
	EffectDetour = "Detour"
)

// Severity values reported by the feed.
const (
	SeverityMinor    = "Minor"
	SeverityModerate = "Moderate"
	SeveritySevere   = "Severe"
)

// ModeSubway is the service mode name used for heavy rail lines.
const ModeSubway = "Subway"

// DefaultExpirySeconds is how long a push stays deliverable on the device side.
const DefaultExpirySeconds = 3600

// AlertID is the upstream alert identifier. The feed has sent it both as a
// JSON number and as a string, so both decode to the same decimal text.
type AlertID string

func (id *AlertID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = AlertID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*id = ""
		return nil
	}
	*id = AlertID(n.String())
	return nil
}

func (id AlertID) String() string { return string(id) }

// EpochSeconds is a unix timestamp that tolerates string encoding.
// Values that cannot be parsed decode with Valid=false instead of failing.
type EpochSeconds struct {
	Seconds int64
	Valid   bool
}

func (e *EpochSeconds) UnmarshalJSON(b []byte) error {
	*e = EpochSeconds{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return nil
		}
		var ok bool
		if n, ok = floatSeconds(raw); !ok {
			return nil
		}
	}
	*e = EpochSeconds{Seconds: n, Valid: true}
	return nil
}

// floatSeconds parses a fractional timestamp. NaN, infinities and values
// outside the int64 range are rejected.
func floatSeconds(raw string) (int64, bool) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (e EpochSeconds) MarshalJSON() ([]byte, error) {
	if !e.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(e.Seconds, 10)), nil
}

// Time returns the timestamp in UTC. The zero time is returned when invalid.
func (e EpochSeconds) Time() time.Time {
	if !e.Valid {
		return time.Time{}
	}
	return time.Unix(e.Seconds, 0).UTC()
}

// Service is one affected route/mode pair of an alert.
type Service struct {
	Mode    string `json:"mode_name"`
	RouteID string `json:"route_id"`
}

// AffectedServices wraps the services list the way the feed nests it.
type AffectedServices struct {
	Services []Service `json:"services"`
}

// EffectPeriod is a window during which the alert is in effect.
type EffectPeriod struct {
	Start EpochSeconds `json:"effect_start"`
	End   EpochSeconds `json:"effect_end"`
}

// Alert is one service-disruption record from the upstream feed.
type Alert struct {
	ID               AlertID           `json:"alert_id"`
	EffectName       string            `json:"effect_name"`
	Severity         string            `json:"severity"`
	HeaderText       string            `json:"header_text"`
	AffectedServices *AffectedServices `json:"affected_services,omitempty"`
	EffectPeriods    []EffectPeriod    `json:"effect_periods"`
}

// Services returns the affected services, or nil when the alert carries none.
func (a Alert) Services() []Service {
	if a.AffectedServices == nil {
		return nil
	}
	return a.AffectedServices.Services
}

// SentRecord is the durable fence written before a push goes out.
type SentRecord struct {
	AlertID AlertID   `json:"alert_id"`
	SentAt  time.Time `json:"sent_at"`
	Alert   Alert     `json:"alert"`
}

// Push is what a notification sender delivers.
type Push struct {
	AlertID       AlertID  `json:"alert_id"`
	Tags          []string `json:"tags"`
	Body          string   `json:"body"`
	ExpirySeconds int      `json:"expiry"`
}

// NewPush builds the push for an alert with the fixed device-side expiry.
func NewPush(a Alert, tags []string) Push {
	return Push{
		AlertID:       a.ID,
		Tags:          tags,
		Body:          a.HeaderText,
		ExpirySeconds: DefaultExpirySeconds,
	}
}
