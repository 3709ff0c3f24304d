package teacher

import "time"

// Backoff is a standalone retry-delay policy: quadratic growth in the
// attempt number, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff matches the delays used across the codebase for
// provider calls: 500ms, 2s, 4.5s, ... capped at 8s.
var DefaultBackoff = Backoff{Base: 500 * time.Millisecond, Max: 8 * time.Second}

// Delay returns the wait before retry attempt n (first retry is n=1).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := time.Duration(attempt*attempt) * b.Base
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}
