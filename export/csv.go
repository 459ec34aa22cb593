// Package export provides CSV import and export of the book collection,
// using Goodreads-compatible column headers so library exports from
// other tools can be pulled in directly.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/evanfreeze/readrate-cli/model"
)

// csvHeader is the column set written on export and recognized on
// import. "Number of Pages" and "ISBN13" match Goodreads exports.
var csvHeader = []string{"Title", "Author", "Number of Pages", "Current Page", "ISBN13", "Date Started"}

// ImportResult describes what happened to one CSV row.
type ImportResult struct {
	Row    int    `json:"row"`
	Title  string `json:"title"`
	Status string `json:"status"` // "imported" or "skipped"
	Reason string `json:"reason,omitempty"`
	BookID string `json:"book_id,omitempty"`
}

// Generate writes the given books as CSV. Deleted books are excluded;
// archived books are included so an export is a full backup of the
// visible collection.
func Generate(w io.Writer, books []model.Book) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, b := range books {
		if b.IsDeleted() {
			continue
		}
		record := []string{
			b.Title,
			b.Author,
			strconv.Itoa(b.PageCount),
			strconv.Itoa(b.CurrentPage),
			b.ISBN,
			b.StartDate.Format("2006-01-02"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Parse reads books from CSV. The first row must be a header; columns
// are matched by name, case-insensitively, so full Goodreads exports
// with extra columns parse too. Rows missing a title are skipped.
func Parse(r io.Reader, now time.Time) ([]model.Book, []ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols["title"]; !ok {
		return nil, nil, fmt.Errorf("CSV header has no Title column")
	}

	var books []model.Book
	var results []ImportResult
	row := 1

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		row++

		title := field(record, cols, "title")
		if title == "" {
			results = append(results, ImportResult{Row: row, Status: "skipped", Reason: "missing title"})
			continue
		}

		pages, _ := strconv.Atoi(field(record, cols, "number of pages"))
		if pages < 0 {
			pages = 0
		}
		current, _ := strconv.Atoi(field(record, cols, "current page"))
		if current < 0 {
			current = 0
		}
		if current > pages {
			current = pages
		}

		start := now
		if raw := field(record, cols, "date started"); raw != "" {
			if parsed, err := time.ParseInLocation("2006-01-02", raw, now.Location()); err == nil {
				start = parsed
			}
		}

		// Imported books get a default pages-per-day goal; there is no
		// meaningful target date to infer from a spreadsheet.
		rate := defaultImportRate
		books = append(books, model.Book{
			Title:       title,
			Author:      field(record, cols, "author"),
			PageCount:   pages,
			CurrentPage: current,
			StartDate:   start,
			GoalMode:    model.GoalModeRate,
			RateGoal:    &rate,
			ISBN:        cleanISBN(field(record, cols, "isbn13")),
		})
		results = append(results, ImportResult{Row: row, Title: title, Status: "imported"})
	}

	return books, results, nil
}

const defaultImportRate = 15

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// cleanISBN strips the ="..." wrapper Goodreads puts around ISBN columns.
func cleanISBN(s string) string {
	s = strings.TrimPrefix(s, "=")
	s = strings.Trim(s, `"`)
	return s
}
