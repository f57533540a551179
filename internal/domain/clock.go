package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze the target date via SetClock.
var clock = clockwork.NewRealClock()

// jst is the zone JMA publishes in. Japan has no daylight saving time.
var jst = time.FixedZone("JST", 9*60*60)

// SetClock swaps the time source used by TargetDate. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// TargetDate returns tomorrow's calendar date in Japan Standard Time.
func TargetDate() Date {
	return DateOf(clock.Now().In(jst).AddDate(0, 0, 1))
}
