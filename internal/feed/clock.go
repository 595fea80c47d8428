package feed

import "time"

// Timer is a cancelable pending callback
type Timer interface {
	Stop() bool
}

// Clock abstracts time for the simulator's schedulers so tests can drive
// transitions synchronously instead of sleeping on wall-clock timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock returns the wall-clock implementation
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
