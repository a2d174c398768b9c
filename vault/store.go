package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store keeps the service -> Entry map and rewrites the whole blob on every
// mutation. It never sees plaintext or keys.
type Store struct {
	blob    Blob
	now     func() time.Time
	entries map[string]Entry
	loaded  bool
}

func NewStore(blob Blob) *Store {
	return &Store{blob: blob, now: time.Now}
}

func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	raw, err := s.blob.Read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Msg("entry store not found, starting empty")
		s.entries = map[string]Entry{}
	case err != nil:
		return fmt.Errorf("%w: read entries: %w", ErrPersistence, err)
	default:
		entries, err := decodeEntries(raw)
		if err != nil {
			// Corrupt data stays on disk untouched until someone looks at it.
			log.Error().Err(err).Msg("entry store is unreadable")
			return err
		}
		log.Debug().Int("entries", len(entries)).Msg("entry store loaded")
		s.entries = entries
	}
	s.loaded = true
	return nil
}

// commit persists next and only then makes it the live map.
func (s *Store) commit(next map[string]Entry) error {
	raw, err := encodeEntries(next)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := s.blob.Write(raw); err != nil {
		log.Error().Err(err).Msg("entry store write failed")
		return fmt.Errorf("%w: write entries: %w", ErrPersistence, err)
	}
	s.entries = next
	return nil
}

func (s *Store) withChange(service string, e *Entry) map[string]Entry {
	next := make(map[string]Entry, len(s.entries)+1)
	for k, v := range s.entries {
		next[k] = v
	}
	if e == nil {
		delete(next, service)
	} else {
		next[service] = *e
	}
	return next
}

func validService(service string) error {
	if service == "" {
		return fmt.Errorf("%w: service name is empty", ErrValidation)
	}
	return nil
}

// Put inserts entry, or replaces an existing one when overwrite is set.
// A replaced entry keeps its ID and CreatedAt.
func (s *Store) Put(entry Entry, overwrite bool) error {
	if err := validService(entry.Service); err != nil {
		return err
	}
	if len(entry.Cipher) == 0 {
		return fmt.Errorf("%w: empty ciphertext", ErrValidation)
	}
	if err := s.load(); err != nil {
		return err
	}

	now := s.now()
	e := entry.clone()
	if old, ok := s.entries[entry.Service]; ok {
		if !overwrite {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, entry.Service)
		}
		e.ID = old.ID
		e.CreatedAt = old.CreatedAt
		e.LastAccessedAt = old.LastAccessedAt
		e.UpdatedAt = now
	} else {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.CreatedAt, e.UpdatedAt, e.LastAccessedAt = now, now, now
	}
	return s.commit(s.withChange(e.Service, &e))
}

func (s *Store) Get(service string) (Entry, error) {
	if err := validService(service); err != nil {
		return Entry{}, err
	}
	if err := s.load(); err != nil {
		return Entry{}, err
	}
	e, ok := s.entries[service]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, service)
	}
	return e.clone(), nil
}

func (s *Store) Has(service string) (bool, error) {
	if err := s.load(); err != nil {
		return false, err
	}
	_, ok := s.entries[service]
	return ok, nil
}

// TouchAccess moves LastAccessedAt strictly forward and persists it.
func (s *Store) TouchAccess(service string) error {
	e, err := s.Get(service)
	if err != nil {
		return err
	}
	now := s.now()
	if !now.After(e.LastAccessedAt) {
		now = e.LastAccessedAt.Add(time.Nanosecond)
	}
	e.LastAccessedAt = now
	return s.commit(s.withChange(service, &e))
}

func (s *Store) Delete(service string) error {
	if _, err := s.Get(service); err != nil {
		return err
	}
	return s.commit(s.withChange(service, nil))
}

// List returns every entry sorted by service name.
func (s *Store) List() ([]Entry, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

func (s *Store) Count() (int, error) {
	if err := s.load(); err != nil {
		return 0, err
	}
	return len(s.entries), nil
}
