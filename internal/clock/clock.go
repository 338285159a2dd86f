// Package clock provides a single source of "now" for the coordination
// kernel. Every timestamp written to the Store or the Event Log passes
// through a Clock so that tests can control time deterministically and so
// skew has one place to be observed in production.
package clock

import "time"

// Clock abstracts wall-clock time.
type Clock interface {
	// Now returns the current time. The production implementation returns
	// system UTC; test implementations are settable and advanceable.
	Now() time.Time
}

// System is the production Clock. It returns time.Now().UTC().
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// New returns the production system Clock.
func New() Clock { return System{} }
