package model

import (
	"math"
	"time"
)

// StartOfDay returns midnight of t's local calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same local calendar day.
// This is calendar comparison, not elapsed-24h comparison.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween counts calendar days from from to to (negative when to is
// earlier). Rounding absorbs the 23/25-hour days around DST changes.
func DaysBetween(from, to time.Time) int {
	diff := StartOfDay(to).Sub(StartOfDay(from))
	return int(math.Round(diff.Hours() / 24))
}
