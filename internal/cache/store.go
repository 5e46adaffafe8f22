package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/tabfind/internal/model"
)

// Entry is the persisted form of the last successful fetch
type Entry struct {
	RawText   string    `json:"rawText"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lookup is an entry read back together with its age
type Lookup struct {
	Entry
	Age   time.Duration
	Stale bool
}

// Store reads and writes the single cached document for one source.
// Entries never expire on their own: staleness is only reported.
type Store struct {
	medium Cache
	key    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates a store over medium under key
func NewStore(medium Cache, key string, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		medium: medium,
		key:    key,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Key returns the storage key
func (s *Store) Key() string { return s.key }

// TTL returns the freshness window
func (s *Store) TTL() time.Duration { return s.ttl }

// Read returns the cached entry. Unparseable content or missing fields
// read as absent; the stored bytes are left in place.
func (s *Store) Read() (Lookup, bool) {
	if s == nil || s.medium == nil {
		return Lookup{}, false
	}

	data, found := s.medium.Get(s.key)
	if !found {
		return Lookup{}, false
	}

	var stored struct {
		RawText   *string    `json:"rawText"`
		UpdatedAt *time.Time `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("cache entry unreadable", "key", s.key, "error", err)
		return Lookup{}, false
	}
	if stored.RawText == nil || stored.UpdatedAt == nil || stored.UpdatedAt.IsZero() {
		s.logger.Warn("cache entry incomplete", "key", s.key)
		return Lookup{}, false
	}

	age := s.now().Sub(*stored.UpdatedAt)
	if age < 0 {
		age = 0
	}
	return Lookup{
		Entry: Entry{RawText: *stored.RawText, UpdatedAt: *stored.UpdatedAt},
		Age:   age,
		Stale: age > s.ttl,
	}, true
}

// Write persists raw text with its fetch time. Failures wrap
// model.ErrPersistence and are meant to be logged, not surfaced.
func (s *Store) Write(raw string, ts time.Time) error {
	if s == nil || s.medium == nil {
		return nil
	}
	data, err := json.Marshal(Entry{RawText: raw, UpdatedAt: ts.UTC()})
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	if err := s.medium.Set(s.key, data, NoExpiration); err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return nil
}

// Clear removes the entry for this source
func (s *Store) Clear() error {
	if s == nil || s.medium == nil {
		return nil
	}
	if err := s.medium.Delete(s.key); err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistence, err)
	}
	return nil
}
