package models

import (
	"math"
	"time"
)

// Result represents the outcome of a rate limit check.
type Result struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// RetryAfter is only set when the request was denied.
	RetryAfter time.Duration `json:"-"`
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below one
// for a denied request.
func (r *Result) RetryAfterSeconds() int {
	if r == nil || r.Allowed {
		return 0
	}
	secs := int(math.Ceil(r.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Valid reports whether the limit admits at least one request per window.
func (l Limit) Valid() bool {
	return l.Requests > 0 && l.Window > 0
}
