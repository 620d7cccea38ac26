package pomodoro

import "time"

// Clock abstracts wall time and delayed callbacks so that phase expiry can be
// driven by tests without sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the production clock backed by the time package.
func SystemClock() Clock { return systemClock{} }
