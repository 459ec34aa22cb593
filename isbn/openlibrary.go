// Package isbn looks up book metadata by ISBN so newly added books can
// be prefilled with a title, author, page count, and cover art. Goal
// computation never depends on anything this package returns.
package isbn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the lookup service has no record for the
// ISBN. Transport and decode failures are returned as distinct errors.
var ErrNotFound = errors.New("isbn not found")

// BookInfo is the metadata a successful lookup yields.
type BookInfo struct {
	ISBN        string   `json:"isbn"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	PageCount   int      `json:"page_count"`
	PublishDate string   `json:"publish_date"`
	CoverSmall  string   `json:"cover_small,omitempty"`
	CoverMedium string   `json:"cover_medium,omitempty"`
	CoverLarge  string   `json:"cover_large,omitempty"`
}

// Author joins the author names into one display string.
func (i *BookInfo) Author() string {
	return strings.Join(i.Authors, ", ")
}

// Client queries the OpenLibrary Books API. One attempt per lookup, no
// retries; callers that want caching wrap the client (see CachedClient).
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates an OpenLibrary lookup client.
func NewClient() *Client {
	return &Client{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "https://openlibrary.org",
	}
}

// olBook mirrors the relevant slice of an OpenLibrary "data" record.
type olBook struct {
	Title         string     `json:"title"`
	Authors       []olAuthor `json:"authors"`
	NumberOfPages int        `json:"number_of_pages"`
	PublishDate   string     `json:"publish_date"`
	Cover         *olCover   `json:"cover"`
}

type olAuthor struct {
	Name string `json:"name"`
}

type olCover struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Lookup fetches metadata for one ISBN. Returns ErrNotFound when the
// service has no record; any other error is a transport or decode
// failure.
func (c *Client) Lookup(ctx context.Context, isbn string) (*BookInfo, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, errors.New("isbn is empty")
	}

	key := "ISBN:" + isbn
	lookupURL := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data",
		c.baseURL, url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query OpenLibrary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenLibrary returned status %d", resp.StatusCode)
	}

	// The response is an object keyed by bibkey; an unknown ISBN comes
	// back as an empty object, not a 404.
	var result map[string]olBook
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode OpenLibrary response: %w", err)
	}

	record, ok := result[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}

	info := &BookInfo{
		ISBN:        isbn,
		Title:       record.Title,
		PageCount:   record.NumberOfPages,
		PublishDate: record.PublishDate,
	}
	for _, a := range record.Authors {
		if a.Name != "" {
			info.Authors = append(info.Authors, a.Name)
		}
	}
	if record.Cover != nil {
		info.CoverSmall = record.Cover.Small
		info.CoverMedium = record.Cover.Medium
		info.CoverLarge = record.Cover.Large
	}
	return info, nil
}

// NormalizeISBN strips hyphens and spaces so equivalent ISBN spellings
// hit the same cache key and bibkey.
func NormalizeISBN(isbn string) string {
	isbn = strings.TrimSpace(isbn)
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	return isbn
}
