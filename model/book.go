// Package model defines the core data structures for readrate-cli.
package model

import (
	"errors"
	"time"
)

// GoalMode selects which kind of reading goal governs a book's daily target.
type GoalMode string

const (
	// GoalModeDate means the book has a target finish date and the daily
	// page rate is adjusted to hit it.
	GoalModeDate GoalMode = "date"
	// GoalModeRate means the book has a fixed pages-per-day rate and the
	// finish date floats.
	GoalModeRate GoalMode = "rate"
)

// IsValid reports whether the goal mode is a known value.
func (m GoalMode) IsValid() bool {
	return m == GoalModeDate || m == GoalModeRate
}

// Status is a book's derived lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// CoverImages holds cover URLs from an ISBN lookup.
type CoverImages struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// GoalSnapshot is a copy of the inputs a daily target was computed from.
// It exists solely so the next staleness check can detect that a
// goal-relevant input changed since the last calculation.
type GoalSnapshot struct {
	PageCount   int        `json:"page_count"`
	CurrentPage int        `json:"current_page"`
	Mode        GoalMode   `json:"mode"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	RateGoal    *int       `json:"rate_goal,omitempty"`
}

// DailyTarget is one computed "read to page N today" record. Targets are
// append-only: once added to a book they are never reordered or mutated.
type DailyTarget struct {
	TargetPage   int          `json:"target_page"`
	CalculatedAt time.Time    `json:"calculated_at"`
	Snapshot     GoalSnapshot `json:"snapshot"`
}

// Book is a single tracked book: identity, reading state, goal
// configuration, and the history of computed daily targets.
type Book struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	PageCount    int           `json:"page_count"`
	CurrentPage  int           `json:"current_page"`
	StartDate    time.Time     `json:"start_date"`
	TargetDate   time.Time     `json:"target_date"`
	RateGoal     *int          `json:"rate_goal,omitempty"`
	GoalMode     GoalMode      `json:"goal_mode"`
	DailyTargets []DailyTarget `json:"daily_targets"`
	ArchivedAt   *time.Time    `json:"archived_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	DeletedAt    *time.Time    `json:"deleted_at,omitempty"`
	ISBN         string        `json:"isbn,omitempty"`
	Covers       *CoverImages  `json:"covers,omitempty"`
}

// MinimumVisibleFill is the smallest progress-bar fill we render, so a
// barely-started book still shows a sliver of progress.
const MinimumVisibleFill = 0.06

// Validate checks that the book has the fields every book needs.
func (b *Book) Validate() error {
	if b.Title == "" {
		return errors.New("book title is required")
	}
	if b.PageCount < 0 {
		return errors.New("page count cannot be negative")
	}
	if !b.GoalMode.IsValid() {
		return errors.New("goal mode must be \"date\" or \"rate\"")
	}
	if b.GoalMode == GoalModeDate && b.TargetDate.IsZero() {
		return errors.New("date-mode goal requires a target date")
	}
	if b.GoalMode == GoalModeRate && b.RateGoal == nil {
		return errors.New("rate-mode goal requires a pages-per-day rate")
	}
	return nil
}

// IsCompleted reports whether the book has been read to the last page.
func (b *Book) IsCompleted() bool {
	return b.CompletedAt != nil
}

// IsArchived reports whether the book has been archived.
func (b *Book) IsArchived() bool {
	return b.ArchivedAt != nil
}

// IsDeleted reports whether the book has been tombstoned.
func (b *Book) IsDeleted() bool {
	return b.DeletedAt != nil
}

// IsNotStarted reports whether the book's start date is still in the
// future on now's local calendar day. A book starting today counts as
// started.
func (b *Book) IsNotStarted(now time.Time) bool {
	return StartOfDay(b.StartDate).After(StartOfDay(now))
}

// Status derives the book's lifecycle state for now. Archived and
// deleted are orthogonal flags, not statuses.
func (b *Book) Status(now time.Time) Status {
	switch {
	case b.IsCompleted():
		return StatusCompleted
	case b.IsNotStarted(now):
		return StatusNotStarted
	default:
		return StatusInProgress
	}
}

// CurrentTarget returns the most recent daily target, or nil if none has
// been computed yet.
func (b *Book) CurrentTarget() *DailyTarget {
	if len(b.DailyTargets) == 0 {
		return nil
	}
	return &b.DailyTargets[len(b.DailyTargets)-1]
}

// ReadEnoughToday reports whether the current page has reached today's
// target. With no target on record the whole book is the target.
func (b *Book) ReadEnoughToday() bool {
	target := b.PageCount
	if t := b.CurrentTarget(); t != nil {
		target = t.TargetPage
	}
	return b.CurrentPage >= target
}

// CompletionPercentage returns currentPage/pageCount in [0, 1]. A
// zero-page book (possible from manual entry) reads as 0% rather than
// dividing by zero.
func (b *Book) CompletionPercentage() float64 {
	if b.PageCount <= 0 {
		return 0
	}
	return float64(b.CurrentPage) / float64(b.PageCount)
}

// ProgressBarFillAmount is the completion percentage clamped up to
// MinimumVisibleFill.
func (b *Book) ProgressBarFillAmount() float64 {
	pct := b.CompletionPercentage()
	if pct < MinimumVisibleFill {
		return MinimumVisibleFill
	}
	return pct
}

// PagesRemaining returns how many pages are left, never negative.
func (b *Book) PagesRemaining() int {
	remaining := b.PageCount - b.CurrentPage
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SetCurrentPage moves the bookmark, clamping to [0, PageCount], and
// keeps CompletedAt consistent: reaching the last page marks the book
// complete, dropping back below it un-marks completion.
func (b *Book) SetCurrentPage(page int, now time.Time) {
	if page < 0 {
		page = 0
	}
	if page > b.PageCount {
		page = b.PageCount
	}
	b.CurrentPage = page
	b.normalizeCompletion(now)
}

// SetPageCount changes the total page count (editable after creation),
// re-clamping the current page and re-deriving completion.
func (b *Book) SetPageCount(pages int, now time.Time) {
	if pages < 0 {
		pages = 0
	}
	b.PageCount = pages
	if b.CurrentPage > b.PageCount {
		b.CurrentPage = b.PageCount
	}
	b.normalizeCompletion(now)
}

// normalizeCompletion enforces currentPage == pageCount ⇔ completedAt set.
func (b *Book) normalizeCompletion(now time.Time) {
	finished := b.PageCount > 0 && b.CurrentPage == b.PageCount
	switch {
	case finished && b.CompletedAt == nil:
		at := now
		b.CompletedAt = &at
	case !finished && b.CompletedAt != nil:
		b.CompletedAt = nil
	}
}
