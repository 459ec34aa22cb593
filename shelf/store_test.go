package shelf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanfreeze/readrate-cli/model"
)

func testShelfPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "books.json")
}

// fullCollection builds a collection exercising every field, optional
// ones included, with fixed UTC timestamps so equality is exact.
func fullCollection() []model.Book {
	base := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	rate := 15
	archived := base.AddDate(0, 0, 2)
	completed := base.AddDate(0, 0, 3)
	deleted := base.AddDate(0, 0, 4)
	snapTarget := base.AddDate(0, 0, 14)

	return []model.Book{
		{
			ID:          "book-date",
			Title:       "The Fault in Our Stars",
			Author:      "John Green",
			PageCount:   320,
			CurrentPage: 23,
			StartDate:   base.AddDate(0, 0, -4),
			TargetDate:  base.AddDate(0, 0, 14),
			GoalMode:    model.GoalModeDate,
			DailyTargets: []model.DailyTarget{
				{
					TargetPage:   50,
					CalculatedAt: base,
					Snapshot: model.GoalSnapshot{
						PageCount:   320,
						CurrentPage: 23,
						Mode:        model.GoalModeDate,
						TargetDate:  &snapTarget,
					},
				},
			},
			ISBN: "9780525478812",
			Covers: &model.CoverImages{
				Small:  "https://covers.example/s.jpg",
				Medium: "https://covers.example/m.jpg",
				Large:  "https://covers.example/l.jpg",
			},
		},
		{
			ID:           "book-rate",
			Title:        "Deep Work",
			Author:       "Cal Newport",
			PageCount:    300,
			CurrentPage:  300,
			StartDate:    base.AddDate(0, 0, -20),
			GoalMode:     model.GoalModeRate,
			RateGoal:     &rate,
			DailyTargets: []model.DailyTarget{},
			ArchivedAt:   &archived,
			CompletedAt:  &completed,
		},
		{
			ID:           "book-deleted",
			Title:        "Abandoned",
			PageCount:    100,
			StartDate:    base,
			TargetDate:   base.AddDate(0, 0, 30),
			GoalMode:     model.GoalModeDate,
			DailyTargets: []model.DailyTarget{},
			DeletedAt:    &deleted,
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := NewStore(testShelfPath(t))
	books := fullCollection()

	require.NoError(t, store.Save(books))

	loaded, err := store.Load()
	require.NoError(t, err)
	// Every field, timestamps and target history included, survives
	// the trip exactly.
	assert.Equal(t, books, loaded)
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(testShelfPath(t))

	books, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := testShelfPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewStore(path)
	books, err := store.Load()
	require.NoError(t, err, "corrupt shelf is treated as empty, not as a failure")
	assert.Empty(t, books)

	// The broken file is preserved for diagnostics.
	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	preserved, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(preserved))

	// The original path is free again: the next save works.
	require.NoError(t, store.Save(fullCollection()))
}

func TestStore_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "books.json")
	store := NewStore(path)

	require.NoError(t, store.Save(fullCollection()))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
}

func TestStore_SaveEmptyCollection(t *testing.T) {
	store := NewStore(testShelfPath(t))

	// nil saves as an empty JSON array, not "null".
	require.NoError(t, store.Save(nil))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	path := testShelfPath(t)
	store := NewStore(path)

	require.NoError(t, store.Save(fullCollection()))
	require.NoError(t, store.Save(fullCollection()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestStore_SaveIsHumanReadable(t *testing.T) {
	store := NewStore(testShelfPath(t))
	require.NoError(t, store.Save(fullCollection()))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {", "shelf JSON should be pretty-printed")
}
