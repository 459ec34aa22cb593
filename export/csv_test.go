package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanfreeze/readrate-cli/model"
)

var importNow = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	rate := 15
	deleted := importNow.AddDate(0, 0, -1)
	books := []model.Book{
		{
			ID:          "a",
			Title:       "Deep Work",
			Author:      "Cal Newport",
			PageCount:   296,
			CurrentPage: 100,
			StartDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			GoalMode:    model.GoalModeRate,
			RateGoal:    &rate,
			ISBN:        "9781455586691",
		},
		{
			ID:        "b",
			Title:     "Should Not Appear",
			PageCount: 10,
			StartDate: importNow,
			GoalMode:  model.GoalModeRate,
			RateGoal:  &rate,
			DeletedAt: &deleted,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, books))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// Header plus one row; the deleted book is excluded.
	require.Len(t, lines, 2)
	assert.Equal(t, "Title,Author,Number of Pages,Current Page,ISBN13,Date Started", lines[0])
	assert.Equal(t, "Deep Work,Cal Newport,296,100,9781455586691,2026-08-01", lines[1])
}

func TestParse(t *testing.T) {
	input := `Title,Author,Number of Pages,Current Page,ISBN13,Date Started
Deep Work,Cal Newport,296,100,9781455586691,2026-08-01
So You Want to Talk About Race,Ijeoma Oluo,238,0,,
`

	books, results, err := Parse(strings.NewReader(input), importNow)
	require.NoError(t, err)
	require.Len(t, books, 2)
	require.Len(t, results, 2)

	first := books[0]
	assert.Equal(t, "Deep Work", first.Title)
	assert.Equal(t, "Cal Newport", first.Author)
	assert.Equal(t, 296, first.PageCount)
	assert.Equal(t, 100, first.CurrentPage)
	assert.Equal(t, "9781455586691", first.ISBN)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), first.StartDate)
	assert.Equal(t, model.GoalModeRate, first.GoalMode)
	require.NotNil(t, first.RateGoal)
	assert.Equal(t, defaultImportRate, *first.RateGoal)

	// Missing start date defaults to now.
	assert.Equal(t, importNow, books[1].StartDate)

	for _, r := range results {
		assert.Equal(t, "imported", r.Status)
	}
}

func TestParse_GoodreadsStyle(t *testing.T) {
	// A Goodreads export has many extra columns, a quoted ISBN, and no
	// "Current Page" column; column matching is by name.
	input := `Book Id,Title,Author,ISBN13,My Rating,Number of Pages,Date Started
123,"The Fault in Our Stars","John Green","=""9780525478812""",5,320,
`

	books, results, err := Parse(strings.NewReader(input), importNow)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Len(t, results, 1)

	book := books[0]
	assert.Equal(t, "The Fault in Our Stars", book.Title)
	assert.Equal(t, "John Green", book.Author)
	assert.Equal(t, 320, book.PageCount)
	assert.Equal(t, 0, book.CurrentPage)
	assert.Equal(t, "9780525478812", book.ISBN)
}

func TestParse_SkipsRowsWithoutTitle(t *testing.T) {
	input := `Title,Author,Number of Pages
Good Book,Someone,100
,Nobody,50
`

	books, results, err := Parse(strings.NewReader(input), importNow)
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Len(t, results, 2)

	assert.Equal(t, "imported", results[0].Status)
	assert.Equal(t, "skipped", results[1].Status)
	assert.Equal(t, "missing title", results[1].Reason)
}

func TestParse_ClampsCurrentPage(t *testing.T) {
	input := `Title,Number of Pages,Current Page
Overshot,100,150
Negative,100,-5
No Page Count,,50
Bad Page Count,-20,50
`

	books, _, err := Parse(strings.NewReader(input), importNow)
	require.NoError(t, err)
	require.Len(t, books, 4)
	assert.Equal(t, 100, books[0].CurrentPage)
	assert.Equal(t, 0, books[1].CurrentPage)

	// An unusable page count clamps the current page down to zero; the
	// bookmark can never sit past the last known page.
	assert.Equal(t, 0, books[2].PageCount)
	assert.Equal(t, 0, books[2].CurrentPage)
	assert.Equal(t, 0, books[3].PageCount)
	assert.Equal(t, 0, books[3].CurrentPage)
}

func TestParse_RejectsHeaderWithoutTitle(t *testing.T) {
	_, _, err := Parse(strings.NewReader("Author,Pages\nSomeone,100\n"), importNow)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	rate := 15
	books := []model.Book{
		{
			Title:       "Deep Work",
			Author:      "Cal Newport",
			PageCount:   296,
			CurrentPage: 100,
			StartDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			GoalMode:    model.GoalModeRate,
			RateGoal:    &rate,
			ISBN:        "9781455586691",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Generate(&buf, books))

	parsed, _, err := Parse(&buf, importNow)
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	// The importable fields survive the trip.
	assert.Equal(t, books[0].Title, parsed[0].Title)
	assert.Equal(t, books[0].Author, parsed[0].Author)
	assert.Equal(t, books[0].PageCount, parsed[0].PageCount)
	assert.Equal(t, books[0].CurrentPage, parsed[0].CurrentPage)
	assert.Equal(t, books[0].ISBN, parsed[0].ISBN)
	assert.Equal(t, books[0].StartDate, parsed[0].StartDate)
}
