package workqueue

import "time"

// realClock backs the reconciler with the runtime's wall clock. Tests
// substitute their own Clock to drive the poll loop deterministically.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Ticker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// realTicker promotes Stop from the embedded ticker.
type realTicker struct {
	*time.Ticker
}

func (t realTicker) Chan() <-chan time.Time { return t.C }
