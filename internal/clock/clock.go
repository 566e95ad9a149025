// Package clock provides an injectable time source so that recording
// timers can be driven deterministically in tests.
//
// Production code uses Real(). Tests use Fake() and call Advance to fire
// pending timers and tickers synchronously.
package clock

import "time"

// Clock abstracts the time operations used by the recorder and the
// directory watcher.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f once after duration d.
	AfterFunc(d time.Duration, f func()) *Timer

	// TickFunc calls f every interval d until the returned Ticker is
	// stopped. Panics if d <= 0.
	TickFunc(d time.Duration, f func()) *Ticker
}

// Ticker is a periodic callback registration. Stop is idempotent.
type Ticker struct {
	stopFunc func()
}

// Stop cancels the ticker. No callback starts after Stop returns.
func (t *Ticker) Stop() { t.stopFunc() }

// Timer is a one-shot callback registration.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the Timer from firing. Returns false if it already
// fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
