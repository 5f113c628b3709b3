package stream

import "time"

// reconnectDelays is the fixed escalating backoff between reconnection
// attempts. The last value repeats forever: reconnection is
// unconditional while the client is active, with no retry ceiling.
var reconnectDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	15 * time.Second,
}

// ReconnectDelay maps the retry counter (1-based, incremented on every
// failure) to the delay before the next attempt, clamped at the last
// entry of the sequence.
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	if attempt > len(reconnectDelays) {
		attempt = len(reconnectDelays)
	}

	return reconnectDelays[attempt-1]
}
