// Package daywindow decides which of the 31 day slots are active for a
// calendar day. The window starts at today's slot and extends width slots
// forward, wrapping past the end of the month cycle.
package daywindow

import "time"

// Slots is the number of day slots in one cycle.
const Slots = 31

// IsEligible reports whether slot falls inside the window starting at day
// and spanning width further slots.
func IsEligible(day, width, slot int) bool {
	hi := day + width
	if hi < Slots {
		return slot >= day && slot <= hi
	}
	return slot >= day || slot <= hi%Slots
}

// ActiveSlots returns the eligible slots in index order.
func ActiveSlots(day, width int) []int {
	var active []int
	for i := 0; i < Slots; i++ {
		if IsEligible(day, width, i) {
			active = append(active, i)
		}
	}
	return active
}

// DayIndex returns the zero-based UTC day of month of t shifted by offset,
// folded into the slot cycle.
func DayIndex(t time.Time, offset time.Duration) int {
	return (t.Add(offset).UTC().Day() - 1) % Slots
}

// UntilRollover returns the time left until the next UTC midnight of t
// shifted by offset.
func UntilRollover(t time.Time, offset time.Duration) time.Duration {
	now := t.Add(offset).UTC()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	return midnight.Sub(now)
}
