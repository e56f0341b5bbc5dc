//go:build !windows

package evaluator

import "time"

var clockEpoch = time.Now()

// stopwatch measures elapsed evaluation time on the monotonic clock.
type stopwatch struct {
	startNano int64
}

func startStopwatch() stopwatch {
	return stopwatch{startNano: time.Since(clockEpoch).Nanoseconds()}
}

// elapsedMs returns the whole milliseconds since the stopwatch started.
func (s stopwatch) elapsedMs() int64 {
	return (time.Since(clockEpoch).Nanoseconds() - s.startNano) / int64(time.Millisecond)
}
