package metrics

import "time"

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveSeconds reports the elapsed time to fn, typically a histogram's Observe.
func (t *Timer) ObserveSeconds(fn func(float64)) {
	fn(t.Duration().Seconds())
}
