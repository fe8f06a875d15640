package model

import "fmt"

// Outcome is what happened to a URL the scheduler attempted.
type Outcome int

const (
	// OutcomeStored means the response body was written to disk.
	OutcomeStored Outcome = iota

	// OutcomeDisallowed means robots.txt excluded the URL; nothing was fetched.
	OutcomeDisallowed

	// OutcomeFailed means no response could be obtained (DNS, refused, timeout).
	OutcomeFailed

	// OutcomeSkipped means the URL was queued but dropped by the fetch cap.
	OutcomeSkipped
)

// Outcomes lists every outcome in display order.
var Outcomes = []Outcome{OutcomeStored, OutcomeDisallowed, OutcomeFailed, OutcomeSkipped}

// String returns the lower-case name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeDisallowed:
		return "disallowed"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ParseOutcome converts a name produced by String back into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range Outcomes {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
