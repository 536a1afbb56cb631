// Package storage owns the event and validation collections. The in-memory
// collections are the source of truth; the disk mirror and the Postgres
// archive are best-effort write-behind copies.
package storage

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"news-impact-alerts/internal/schema"
)

// ErrNotFound indicates a lookup for an unknown event.
var ErrNotFound = errors.New("storage: event not found")

// EventStore is the surface the ingestion pipeline depends on.
type EventStore interface {
	InsertEventIfAbsent(event schema.Event) (schema.Event, bool)
	Events() []schema.Event
	HasEventKey(headline, source string) bool
}

// ValidationStore is the surface the correlator depends on.
type ValidationStore interface {
	EventByID(eventID string) (schema.Event, bool)
	ValidationFor(eventID, horizon string) (schema.Validation, bool)
	AppendValidationIfAbsent(v schema.Validation) (schema.Validation, bool)
}

// Store keeps both collections behind one writer lock. Events are inserted
// at the head (newest first); validations are appended in creation order.
type Store struct {
	mu          sync.RWMutex
	events      []schema.Event
	validations []schema.Validation

	backup  *Backup
	archive *Archive
	logger  zerolog.Logger
}

// Options wires the optional mirrors into a Store.
type Options struct {
	Backup  *Backup
	Archive *Archive
}

// NewStore constructs an empty store.
func NewStore(opts Options, logger zerolog.Logger) *Store {
	return &Store{
		backup:  opts.Backup,
		archive: opts.Archive,
		logger:  logger.With().Str("component", "storage").Logger(),
	}
}

// Restore seeds the collections from a mirror snapshot. Meant for startup,
// before any concurrent access.
func (s *Store) Restore(events []schema.Event, validations []schema.Validation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]schema.Event(nil), events...)
	s.validations = append([]schema.Validation(nil), validations...)
}

// InsertEvent prepends an event. Head insertion keeps the newest-first
// ordering invariant without sorting at read time.
func (s *Store) InsertEvent(event schema.Event) {
	s.mu.Lock()
	s.events = append([]schema.Event{event}, s.events...)
	snapshot := append([]schema.Event(nil), s.events...)
	s.mu.Unlock()

	s.mirrorEvents(snapshot)
	if s.archive != nil {
		if err := s.archive.InsertEvent(event); err != nil {
			s.logger.Error().Err(err).Str("event_id", event.EventID).Msg("archive event write failed")
		}
	}
}

// InsertEventIfAbsent prepends the event unless one with the same
// (headline, source) pair already exists. The check and the insert happen
// under one lock, so concurrent identical submissions store exactly one
// record. Returns the stored event and whether a new record was created.
func (s *Store) InsertEventIfAbsent(event schema.Event) (schema.Event, bool) {
	s.mu.Lock()
	for _, e := range s.events {
		if e.Headline == event.Headline && e.Source == event.Source {
			s.mu.Unlock()
			return e, false
		}
	}
	s.events = append([]schema.Event{event}, s.events...)
	snapshot := append([]schema.Event(nil), s.events...)
	s.mu.Unlock()

	s.mirrorEvents(snapshot)
	if s.archive != nil {
		if err := s.archive.InsertEvent(event); err != nil {
			s.logger.Error().Err(err).Str("event_id", event.EventID).Msg("archive event write failed")
		}
	}
	return event, true
}

// Events returns a snapshot of the collection, newest first.
func (s *Store) Events() []schema.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schema.Event(nil), s.events...)
}

// EventByID looks up a stored event.
func (s *Store) EventByID(eventID string) (schema.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.EventID == eventID {
			return e, true
		}
	}
	return schema.Event{}, false
}

// HasEventKey reports whether an event with the exact (headline, source)
// pair is already stored. Case-sensitive by contract.
func (s *Store) HasEventKey(headline, source string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.Headline == headline && e.Source == source {
			return true
		}
	}
	return false
}

// AppendValidation appends a validation record in creation order.
func (s *Store) AppendValidation(v schema.Validation) {
	s.mu.Lock()
	s.validations = append(s.validations, v)
	snapshot := append([]schema.Validation(nil), s.validations...)
	s.mu.Unlock()

	s.mirrorValidations(snapshot)
	if s.archive != nil {
		if err := s.archive.InsertValidation(v); err != nil {
			s.logger.Error().Err(err).Str("event_id", v.EventID).Str("horizon", v.Horizon).Msg("archive validation write failed")
		}
	}
}

// AppendValidationIfAbsent appends the validation unless a record for its
// (event, horizon) pair already exists. The pair check and the append happen
// under one lock. Returns the stored record and whether it was created by
// this call.
func (s *Store) AppendValidationIfAbsent(v schema.Validation) (schema.Validation, bool) {
	s.mu.Lock()
	for _, existing := range s.validations {
		if existing.EventID == v.EventID && existing.Horizon == v.Horizon {
			s.mu.Unlock()
			return existing, false
		}
	}
	s.validations = append(s.validations, v)
	snapshot := append([]schema.Validation(nil), s.validations...)
	s.mu.Unlock()

	s.mirrorValidations(snapshot)
	if s.archive != nil {
		if err := s.archive.InsertValidation(v); err != nil {
			s.logger.Error().Err(err).Str("event_id", v.EventID).Str("horizon", v.Horizon).Msg("archive validation write failed")
		}
	}
	return v, true
}

// Validations returns a snapshot of the collection in append order.
func (s *Store) Validations() []schema.Validation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schema.Validation(nil), s.validations...)
}

// ValidationFor looks up the stored record for one (event, horizon) pair.
func (s *Store) ValidationFor(eventID, horizon string) (schema.Validation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.validations {
		if v.EventID == eventID && v.Horizon == horizon {
			return v, true
		}
	}
	return schema.Validation{}, false
}

// ValidationForEvent returns the first validation recorded for the event,
// if any. Used to attach outcome data to by-ID event reads.
func (s *Store) ValidationForEvent(eventID string) (schema.Validation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.validations {
		if v.EventID == eventID {
			return v, true
		}
	}
	return schema.Validation{}, false
}

// Counts reports collection sizes for the health endpoint.
func (s *Store) Counts() (events, validations int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), len(s.validations)
}

func (s *Store) mirrorEvents(snapshot []schema.Event) {
	if s.backup == nil {
		return
	}
	if err := s.backup.WriteEvents(snapshot); err != nil {
		s.logger.Error().Err(err).Msg("event backup write failed")
	}
}

func (s *Store) mirrorValidations(snapshot []schema.Validation) {
	if s.backup == nil {
		return
	}
	if err := s.backup.WriteValidations(snapshot); err != nil {
		s.logger.Error().Err(err).Msg("validation backup write failed")
	}
}

var _ EventStore = (*Store)(nil)
var _ ValidationStore = (*Store)(nil)
