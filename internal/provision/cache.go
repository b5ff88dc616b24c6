package provision

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/extgov-platform/extgov/internal/allowlist"
)

// Cache mirrors the last validated RemoteConfig on disk so a restart can seed
// a non-empty effective allow-list before the first live fetch completes.
type Cache struct {
	path string
}

// NewCache creates a cache backed by the given file path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the cache file location.
func (c *Cache) Path() string {
	return c.path
}

// Load reads the cached config. A missing file is not an error: it returns
// (nil, nil) and the effective list stays baseline-only.
func (c *Cache) Load() (*allowlist.RemoteConfig, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	var rc allowlist.RemoteConfig
	if err := json.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("decoding cache file: %w", err)
	}

	// Drop entries that fail validation; a tampered or corrupted cache must
	// not widen or break the effective list.
	valid := rc.Entries[:0]
	for _, e := range rc.Entries {
		if e.ID.Valid() {
			valid = append(valid, e)
		}
	}
	rc.Entries = valid

	return &rc, nil
}

// Save writes the config atomically (temp file + rename).
func (c *Cache) Save(rc *allowlist.RemoteConfig) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}
