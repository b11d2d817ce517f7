package dispatch

import "fmt"

// Outcome is the terminal result of dispatching one alert.
type Outcome int

const (
	// OutcomeNoAudience: no tags resolved; the store was not touched.
	OutcomeNoAudience Outcome = iota
	// OutcomeAlreadySent: a marker already existed.
	OutcomeAlreadySent
	// OutcomeStoreUnavailable: the marker lookup failed, so the alert was skipped.
	OutcomeStoreUnavailable
	// OutcomeMarkFailed: the marker write failed, so nothing was sent.
	OutcomeMarkFailed
	// OutcomeDispatched: marked and handed to the sender successfully.
	OutcomeDispatched
	// OutcomeSendFailed: marked, but the sender reported an error. Not retried.
	OutcomeSendFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeNoAudience:       "no_audience",
	OutcomeAlreadySent:      "already_sent",
	OutcomeStoreUnavailable: "store_unavailable",
	OutcomeMarkFailed:       "mark_failed",
	OutcomeDispatched:       "dispatched",
	OutcomeSendFailed:       "send_failed",
}

// Outcomes lists every outcome in declaration order.
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeNoAudience,
		OutcomeAlreadySent,
		OutcomeStoreUnavailable,
		OutcomeMarkFailed,
		OutcomeDispatched,
		OutcomeSendFailed,
	}
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Marked reports whether the alert holds a sent marker after this outcome.
func (o Outcome) Marked() bool {
	return o == OutcomeDispatched || o == OutcomeSendFailed
}
