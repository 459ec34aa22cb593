// Package goal implements the daily-goal recalculation engine: pure
// functions that decide whether a book needs a fresh daily target and
// what that target should be.
package goal

import (
	"fmt"
	"math"
	"time"

	"github.com/evanfreeze/readrate-cli/model"
)

// NeedsTargetUpdate reports whether a new daily target should be
// computed for the book. It is the sole gate on appending targets and
// guarantees at most one recalculation per book per calendar day unless
// a goal-relevant input changed.
func NeedsTargetUpdate(b *model.Book, today time.Time) bool {
	if b.IsCompleted() || b.IsArchived() || b.IsDeleted() || b.IsNotStarted(today) {
		return false
	}

	last := b.CurrentTarget()
	if last == nil {
		return true
	}
	if !model.SameDay(last.CalculatedAt, today) {
		return true
	}
	return goalInputChanged(b, last.Snapshot)
}

// goalInputChanged compares the book's current goal-relevant input
// against the snapshot taken at the last calculation. Switching goal
// modes always counts as a change.
func goalInputChanged(b *model.Book, snap model.GoalSnapshot) bool {
	if b.GoalMode != snap.Mode {
		return true
	}
	switch b.GoalMode {
	case model.GoalModeDate:
		return snap.TargetDate == nil || !snap.TargetDate.Equal(b.TargetDate)
	case model.GoalModeRate:
		if b.RateGoal == nil || snap.RateGoal == nil {
			return (b.RateGoal == nil) != (snap.RateGoal == nil)
		}
		return *b.RateGoal != *snap.RateGoal
	}
	return false
}

// ComputeNextTarget produces the daily target for now. It never fails:
// degenerate inputs (no reading days left, zero pages remaining, missing
// rate) fall back to targeting the rest of the book in one sitting. The
// returned target never exceeds the book's page count.
func ComputeNextTarget(b *model.Book, now time.Time) model.DailyTarget {
	var pagesPerDay int
	switch b.GoalMode {
	case model.GoalModeRate:
		pagesPerDay = ratePagesPerDay(b)
	default:
		pagesPerDay = datePagesPerDay(b, now)
	}

	targetPage := b.CurrentPage + pagesPerDay
	if targetPage > b.PageCount {
		targetPage = b.PageCount
	}

	return model.DailyTarget{
		TargetPage:   targetPage,
		CalculatedAt: now,
		Snapshot:     snapshotOf(b),
	}
}

// datePagesPerDay spreads the remaining pages over the reading days left
// until the target date, inclusive of both today and the target day.
func datePagesPerDay(b *model.Book, now time.Time) int {
	remaining := b.PagesRemaining()

	// Once the start date has arrived, pace is always measured from
	// today; a future start date is measured from itself.
	reference := now
	if b.IsNotStarted(now) {
		reference = b.StartDate
	}

	readingDays := model.DaysBetween(reference, b.TargetDate) + 1
	if readingDays <= 0 || remaining <= 0 {
		return remaining
	}
	return int(math.Round(float64(remaining) / float64(readingDays)))
}

// ratePagesPerDay is the fixed pages-per-day rate, falling back to the
// remaining pages when no usable rate is set.
func ratePagesPerDay(b *model.Book) int {
	if b.RateGoal == nil || *b.RateGoal <= 0 {
		return b.PagesRemaining()
	}
	return *b.RateGoal
}

// snapshotOf captures the goal-relevant inputs at calculation time so
// the next NeedsTargetUpdate call can detect drift.
func snapshotOf(b *model.Book) model.GoalSnapshot {
	snap := model.GoalSnapshot{
		PageCount:   b.PageCount,
		CurrentPage: b.CurrentPage,
		Mode:        b.GoalMode,
	}
	switch b.GoalMode {
	case model.GoalModeDate:
		td := b.TargetDate
		snap.TargetDate = &td
	case model.GoalModeRate:
		if b.RateGoal != nil {
			rate := *b.RateGoal
			snap.RateGoal = &rate
		}
	}
	return snap
}

// EstimatedFinishDate returns the floating finish date for a rate-mode
// book: today plus the days of reading left at the current rate. It is
// informational and never stored on the book. The second return is
// false for date-mode books and rate-mode books without a usable rate.
func EstimatedFinishDate(b *model.Book, now time.Time) (time.Time, bool) {
	if b.GoalMode != model.GoalModeRate || b.RateGoal == nil || *b.RateGoal <= 0 {
		return time.Time{}, false
	}
	daysLeft := int(math.Ceil(float64(b.PagesRemaining()) / float64(*b.RateGoal)))
	return model.StartOfDay(now).AddDate(0, 0, daysLeft), true
}

// Summary renders the one-line goal description shown when a goal is
// configured: the pace for date mode, the estimated finish for rate mode.
func Summary(b *model.Book, now time.Time) string {
	switch b.GoalMode {
	case model.GoalModeRate:
		if est, ok := EstimatedFinishDate(b, now); ok {
			return fmt.Sprintf("%d pages per day (done ~%s)", *b.RateGoal, est.Format("Jan 2, 2006"))
		}
		return "no reading rate set"
	default:
		reference := now
		if b.IsNotStarted(now) {
			reference = b.StartDate
		}
		days := model.DaysBetween(reference, b.TargetDate) + 1
		if days <= 0 {
			return "target date has passed"
		}
		dayWord := "days"
		if days == 1 {
			dayWord = "day"
		}
		return fmt.Sprintf("%d %s, %d pages per day", days, dayWord, datePagesPerDay(b, now))
	}
}
