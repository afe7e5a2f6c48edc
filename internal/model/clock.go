package model

import "time"

// Clock abstracts wall-clock reads so that windowing behavior can be driven
// deterministically in tests instead of sleeping in real time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
