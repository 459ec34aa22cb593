package shelf

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evanfreeze/readrate-cli/goal"
	"github.com/evanfreeze/readrate-cli/model"
)

// ErrBookNotFound is returned when no book matches the given ID.
var ErrBookNotFound = errors.New("book not found")

// ErrAmbiguousID is returned when an ID prefix matches more than one book.
var ErrAmbiguousID = errors.New("book ID prefix is ambiguous")

// Shelf is the collection manager. It owns the in-memory book list and
// is the only component that invokes the goal policy or the store; every
// mutation is followed by a full-collection write. On a write failure
// the in-memory state is kept (the running session stays correct) and
// the error is surfaced to the caller.
type Shelf struct {
	store *Store
	books []model.Book
}

// Open loads the collection at path into a new Shelf.
func Open(path string) (*Shelf, error) {
	store := NewStore(path)
	books, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Shelf{store: store, books: books}, nil
}

// Books returns every book in the collection, tombstoned ones included.
func (s *Shelf) Books() []model.Book {
	return s.books
}

// ActiveBooks returns books that are neither archived nor deleted, in
// shelf order.
func (s *Shelf) ActiveBooks() []model.Book {
	var active []model.Book
	for _, b := range s.books {
		if !b.IsArchived() && !b.IsDeleted() {
			active = append(active, b)
		}
	}
	return active
}

// ArchivedBooks returns archived, non-deleted books, most recently
// archived first.
func (s *Shelf) ArchivedBooks() []model.Book {
	var archived []model.Book
	for _, b := range s.books {
		if b.IsArchived() && !b.IsDeleted() {
			archived = append(archived, b)
		}
	}
	sort.SliceStable(archived, func(i, j int) bool {
		return archived[i].ArchivedAt.After(*archived[j].ArchivedAt)
	})
	return archived
}

// Get returns the book whose ID matches id exactly, or uniquely by
// prefix. Deleted books are not matched.
func (s *Shelf) Get(id string) (*model.Book, error) {
	idx, err := s.find(id)
	if err != nil {
		return nil, err
	}
	book := s.books[idx]
	return &book, nil
}

// Add creates a new book with a fresh ID, appends it, and persists. The
// incoming book is re-run through the bookmark invariants, so a book
// arriving already read to its last page enters the shelf completed.
func (s *Shelf) Add(b model.Book, now time.Time) (*model.Book, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	b.ID = uuid.NewString()
	b.SetCurrentPage(b.CurrentPage, now)
	if b.DailyTargets == nil {
		b.DailyTargets = []model.DailyTarget{}
	}
	s.books = append(s.books, b)
	added := s.books[len(s.books)-1]
	return &added, s.save()
}

// UpdateProgress moves a book's bookmark and persists. Completion state
// follows the page: reaching the last page completes the book, moving
// back un-completes it.
func (s *Shelf) UpdateProgress(id string, page int, now time.Time) (*model.Book, error) {
	return s.mutate(id, func(b *model.Book) error {
		b.SetCurrentPage(page, now)
		return nil
	})
}

// SetDateGoal switches a book to a target-date goal and persists.
func (s *Shelf) SetDateGoal(id string, targetDate time.Time) (*model.Book, error) {
	return s.mutate(id, func(b *model.Book) error {
		b.GoalMode = model.GoalModeDate
		b.TargetDate = targetDate
		return nil
	})
}

// SetRateGoal switches a book to a pages-per-day goal and persists.
func (s *Shelf) SetRateGoal(id string, pagesPerDay int) (*model.Book, error) {
	if pagesPerDay <= 0 {
		return nil, errors.New("pages-per-day rate must be positive")
	}
	return s.mutate(id, func(b *model.Book) error {
		b.GoalMode = model.GoalModeRate
		b.RateGoal = &pagesPerDay
		return nil
	})
}

// Rename updates a book's title and author. Empty values leave the
// existing field untouched.
func (s *Shelf) Rename(id, title, author string) (*model.Book, error) {
	return s.mutate(id, func(b *model.Book) error {
		if title != "" {
			b.Title = title
		}
		if author != "" {
			b.Author = author
		}
		return nil
	})
}

// SetPageCount changes a book's total page count, re-clamping progress.
func (s *Shelf) SetPageCount(id string, pages int, now time.Time) (*model.Book, error) {
	if pages <= 0 {
		return nil, errors.New("page count must be positive")
	}
	return s.mutate(id, func(b *model.Book) error {
		b.SetPageCount(pages, now)
		return nil
	})
}

// Archive moves a book out of the active view.
func (s *Shelf) Archive(id string, now time.Time) (*model.Book, error) {
	return s.mutate(id, func(b *model.Book) error {
		if b.IsArchived() {
			return nil
		}
		at := now
		b.ArchivedAt = &at
		return nil
	})
}

// Unarchive restores an archived book to the active view.
func (s *Shelf) Unarchive(id string) (*model.Book, error) {
	return s.mutate(id, func(b *model.Book) error {
		b.ArchivedAt = nil
		return nil
	})
}

// Remove tombstones a book. The record stays in storage but is excluded
// from every view.
func (s *Shelf) Remove(id string, now time.Time) error {
	_, err := s.mutate(id, func(b *model.Book) error {
		if b.IsDeleted() {
			return nil
		}
		at := now
		b.DeletedAt = &at
		return nil
	})
	return err
}

// RefreshTargets runs the goal policy over the whole collection and
// appends a new daily target to every book that needs one, then persists
// once. Calling it twice on the same calendar day with unchanged goal
// inputs appends nothing the second time. Returns how many books got a
// new target.
func (s *Shelf) RefreshTargets(now time.Time) (int, error) {
	updated := 0
	for i := range s.books {
		b := &s.books[i]
		if !goal.NeedsTargetUpdate(b, now) {
			continue
		}
		b.DailyTargets = append(b.DailyTargets, goal.ComputeNextTarget(b, now))
		updated++
	}
	if updated == 0 {
		return 0, nil
	}
	return updated, s.save()
}

// mutate applies fn to the matched book and persists the collection.
func (s *Shelf) mutate(id string, fn func(*model.Book) error) (*model.Book, error) {
	idx, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if err := fn(&s.books[idx]); err != nil {
		return nil, err
	}
	book := s.books[idx]
	return &book, s.save()
}

// find locates a non-deleted book by exact ID or unique ID prefix.
func (s *Shelf) find(id string) (int, error) {
	if id == "" {
		return 0, ErrBookNotFound
	}
	match := -1
	for i := range s.books {
		if s.books[i].IsDeleted() {
			continue
		}
		if s.books[i].ID == id {
			return i, nil
		}
		if strings.HasPrefix(s.books[i].ID, id) {
			if match >= 0 {
				return 0, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
			}
			match = i
		}
	}
	if match < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBookNotFound, id)
	}
	return match, nil
}

func (s *Shelf) save() error {
	return s.store.Save(s.books)
}
