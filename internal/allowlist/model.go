package allowlist

import (
	"fmt"
	"regexp"
	"time"
)

// ID is a browser extension identifier: 32 lowercase characters a–p.
type ID string

var idPattern = regexp.MustCompile(`^[a-p]{32}$`)

// Valid reports whether the id matches the extension id format.
func (id ID) Valid() bool {
	return idPattern.MatchString(string(id))
}

// ParseID validates s and returns it as an ID.
func ParseID(s string) (ID, error) {
	id := ID(s)
	if !id.Valid() {
		return "", fmt.Errorf("invalid extension id %q: want 32 chars a-p", s)
	}
	return id, nil
}

// Source records where an allow-list entry came from.
type Source string

const (
	SourceStatic Source = "static"
	SourceRemote Source = "remote"
)

// Entry is one extension granted elevated trust.
type Entry struct {
	ID       ID     `json:"id"`
	Source   Source `json:"source"`
	Location string `json:"location,omitempty"` // update URL or local path
	Version  string `json:"version,omitempty"`
}

// RemoteConfig is the immutable result of one successful fetch+parse cycle
// (or the disk cache restored at startup). It is never mutated, only
// superseded by the next successful fetch.
type RemoteConfig struct {
	FetchedAt time.Time `json:"fetched_at"`
	Revision  string    `json:"revision"` // opaque content token
	Entries   []Entry   `json:"entries"`
}

// Snapshot is a fully formed view of the effective allow-list: the compiled-in
// baseline unioned with the active remote config, deduped by id with the
// baseline winning. Readers get either the old or the new snapshot in full,
// never a mix.
type Snapshot struct {
	Seq      uint64 // monotonically increasing per publish
	Revision string // revision token of the active remote config, "" if none
	entries  []Entry
	index    map[ID]struct{}
}

// Entries returns the effective entries in stable order: baseline first, then
// surviving remote entries in response order. Callers must not modify the
// returned slice.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

// Contains reports whether id is in the effective allow-list.
func (s *Snapshot) Contains(id ID) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of effective entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}
