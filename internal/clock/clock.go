// Package clock re-exports the teacher's clock abstraction so logger
// timestamps are testable without wall-clock flakiness.
package clock

import "github.com/jacobsa/timeutil"

// Clock is a source of the current time, grounded on jacobsa/timeutil.Clock
// (the same abstraction the teacher threads through ServerConfig.Clock).
type Clock = timeutil.Clock

// Real returns the wall-clock Clock used outside of tests.
func Real() Clock {
	return timeutil.RealClock()
}
