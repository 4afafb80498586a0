// Package transcache implements the persistent translation cache: a flat
// JSON object mapping a content hash to a translated string.
//
// Keys are the MD5 hex digest of "<source>-><target>:<text>" with text in
// Unicode NFC form, so the same string in the same language pair always
// maps to the same record. Records are never invalidated automatically;
// clearing the cache file is the only way to drop stale translations.
//
// The whole file is loaded at start and rewritten on save. Saves go to a
// temporary file in the same directory which is then renamed over the
// cache file, so an interrupted save never leaves a partial file.
package transcache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
	"golang.org/x/text/unicode/norm"
)

// FileName is the default cache file name.
const FileName = "translation_cache.json"

// DefaultSaveEvery is how many new records trigger an automatic save.
const DefaultSaveEvery = 50

// DefaultPath returns $XDG_CACHE_HOME/modtr/translation_cache.json.
func DefaultPath() string {
	return filepath.Join(xdg.CacheHome, "modtr", FileName)
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Cache is a loaded translation cache.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
	pending int

	// SaveEvery triggers Save after this many Put calls (0 = DefaultSaveEvery,
	// negative disables automatic saves).
	SaveEvery int

	hits, misses int
}

// Stats describes cache usage since Load.
type Stats struct {
	Entries int
	Hits    int
	Misses  int
}

// HitRate returns hits / (hits + misses), or 0 without lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the cache file at path. A missing file yields an empty cache.
// A corrupt file yields an error together with an empty, usable cache bound
// to the same path.
func Load(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.entries = make(map[string]string)
		return c, fmt.Errorf("parsing %s: %w", path, err)
	}
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	return c, nil
}

// Save writes the cache to disk atomically.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Cache) saveLocked() error {
	if c.path == "" {
		return fmt.Errorf("cache path not set")
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".translation_cache-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", c.path, err)
	}
	c.pending = 0
	return nil
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// Clear drops every record and removes the cache file.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
	c.pending = 0
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", c.path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Record operations
// ---------------------------------------------------------------------------

// Key returns the record key for text translated from source to target.
func Key(source, target, text string) string {
	combined := source + "->" + target + ":" + norm.NFC.String(text)
	return fmt.Sprintf("%x", md5.Sum([]byte(combined)))
}

// Get returns the cached translation of text, if any.
func (c *Cache) Get(source, target, text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[Key(source, target, text)]
	if ok && v != "" {
		c.hits++
		return v, true
	}
	c.misses++
	return "", false
}

// Put stores a translation. Every SaveEvery new records the cache is
// saved; a failed automatic save is returned but the record stays cached.
func (c *Cache) Put(source, target, text, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := Key(source, target, text)
	if old, ok := c.entries[k]; ok && old == translated {
		return nil
	}
	c.entries[k] = translated
	c.pending++

	every := c.SaveEvery
	if every == 0 {
		every = DefaultSaveEvery
	}
	if every > 0 && c.pending >= every {
		return c.saveLocked()
	}
	return nil
}

// Dirty reports whether records were added since the last save.
func (c *Cache) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending > 0
}

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns usage counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}
