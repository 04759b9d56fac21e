package detector

import "time"

// Clock abstracts the monotonic wall clock so cooldown and window timing
// can be tested without real delays.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }
