package isbn

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Cache stores successful lookup results in a local SQLite database so
// repeated lookups for the same ISBN work offline and skip the network.
type Cache struct {
	db *sql.DB
}

// NewCache opens (or creates) the cache database at dbPath. Use
// ":memory:" for an in-memory cache (useful for testing).
func NewCache(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	cache := &Cache{db: db}
	if err := cache.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return cache, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lookups (
		isbn TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached metadata for an ISBN, or (nil, nil) on a miss.
func (c *Cache) Get(isbn string) (*BookInfo, error) {
	var data string
	err := c.db.QueryRow(
		"SELECT data FROM lookups WHERE isbn = ?", NormalizeISBN(isbn),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}

	var info BookInfo
	if err := json.Unmarshal([]byte(data), &info); err != nil {
		return nil, fmt.Errorf("failed to decode cached lookup: %w", err)
	}
	return &info, nil
}

// Put stores a lookup result, replacing any previous entry for the ISBN.
func (c *Cache) Put(info *BookInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode lookup for cache: %w", err)
	}
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO lookups (isbn, data, fetched_at) VALUES (?, ?, ?)",
		NormalizeISBN(info.ISBN), string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// CachedClient serves lookups from the cache first and falls back to the
// network client, caching successful responses. Cache errors degrade to
// network-only lookups rather than failing the request.
type CachedClient struct {
	client *Client
	cache  *Cache
}

// NewCachedClient wraps client with cache. A nil cache disables caching.
func NewCachedClient(client *Client, cache *Cache) *CachedClient {
	return &CachedClient{client: client, cache: cache}
}

// Lookup resolves an ISBN through the cache, then the network.
func (c *CachedClient) Lookup(ctx context.Context, isbn string) (*BookInfo, error) {
	if c.cache != nil {
		if info, err := c.cache.Get(isbn); err == nil && info != nil {
			return info, nil
		}
	}

	info, err := c.client.Lookup(ctx, isbn)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		// A failed cache write is not the caller's problem.
		c.cache.Put(info)
	}
	return info, nil
}
