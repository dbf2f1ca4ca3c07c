package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/model"
)

// Key identifies a fetched date range for one city.
type Key struct {
	Emirate string
	City    string
	Start   string
	End     string
}

func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%s_%s", k.Emirate, k.City, k.Start, k.End)
}

// Entry represents a cached set of prayer days with metadata.
type Entry struct {
	Days      []model.PrayerDay `json:"days"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Cache provides disk-based caching of fetched prayer days.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
	mu  sync.RWMutex
}

// New creates a new disk-based cache.
func New(cacheDir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}
	return &Cache{
		dir: cacheDir,
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Get retrieves cached days for key if they exist and aren't expired.
func (c *Cache) Get(key Key) ([]model.PrayerDay, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.filePath(key))
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("ignoring corrupt cache entry")
		return nil, false
	}

	if c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil, false
	}

	return entry.Days, true
}

// Set stores days in the cache.
func (c *Cache) Set(key Key, days []model.PrayerDay) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{
		Days:      days,
		FetchedAt: c.now(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.filePath(key), data, 0644)
}

// Invalidate removes a single cached range.
func (c *Cache) Invalidate(key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.filePath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// InvalidateAll removes all cached entries.
func (c *Cache) InvalidateAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".json" {
			os.Remove(filepath.Join(c.dir, entry.Name()))
		}
	}
	return nil
}

func (c *Cache) filePath(key Key) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.ToLower(key.String()))
	return filepath.Join(c.dir, safe+".json")
}
