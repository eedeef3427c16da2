package pairing

import "time"

// Press classifies a completed (or force-completed) button gesture.
type Press int

const (
	PressNone Press = iota
	// PressShort requests sending the current program.
	PressShort
	// PressLong requests entering pairing mode.
	PressLong
)

// ButtonTracker turns a polled button level into short/long press events.
// A hold of LongPressDuration fires PressLong immediately, without
// waiting for release, so a missed release edge cannot swallow the
// gesture. The eventual release of that hold reports nothing.
type ButtonTracker struct {
	down      bool
	pressedAt time.Time
	longFired bool
}

// Update feeds the current button level. It returns at most one event
// per gesture.
func (b *ButtonTracker) Update(down bool, now time.Time) Press {
	switch {
	case down && !b.down:
		b.down = true
		b.pressedAt = now
		b.longFired = false

	case down && b.down:
		if !b.longFired && now.Sub(b.pressedAt) >= LongPressDuration {
			b.longFired = true
			return PressLong
		}

	case !down && b.down:
		b.down = false
		held := now.Sub(b.pressedAt)
		if b.longFired {
			return PressNone
		}
		if held >= LongPressDuration {
			// Release edge arrived before the polling fallback fired.
			return PressLong
		}
		return PressShort
	}
	return PressNone
}
