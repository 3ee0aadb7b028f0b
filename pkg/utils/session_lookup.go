package utils

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

var ErrUnknownSession = errors.New("unknown session")

type (
	LookupOption[T any] func(*SessionLookup[T])

	sessionEntry[T any] struct {
		data     T
		lastUsed time.Time
	}

	// SessionLookup shares loaded sessions between commands within one
	// process. Entries are kept until removed, cleared or evicted as
	// stale.
	SessionLookup[T any] struct {
		mutex  sync.Mutex
		lookup map[string]*sessionEntry[T]
		stale  time.Duration
	}
)

// WithStaleDuration enables eviction of entries not used for the given
// duration. Zero keeps entries forever.
func WithStaleDuration[T any](arg time.Duration) LookupOption[T] {
	return func(s *SessionLookup[T]) { s.stale = arg }
}

func NewSessionLookup[T any](opts ...LookupOption[T]) *SessionLookup[T] {
	ret := &SessionLookup[T]{
		lookup: make(map[string]*sessionEntry[T]),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Add registers a session. An already registered id is kept untouched.
func (s *SessionLookup[T]) Add(sessionID string, data T) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.lookup[sessionID]; ok {
		return
	}
	s.lookup[sessionID] = &sessionEntry[T]{data: data, lastUsed: time.Now()}
}

func (s *SessionLookup[T]) Get(sessionID string) (T, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	entry, ok := s.lookup[sessionID]
	if !ok {
		var zero T
		return zero, ErrUnknownSession
	}
	entry.lastUsed = time.Now()
	return entry.data, nil
}

func (s *SessionLookup[T]) Remove(sessionID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.lookup, sessionID)
}

func (s *SessionLookup[T]) SessionIDs() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return slices.Sorted(maps.Keys(s.lookup))
}

func (s *SessionLookup[T]) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lookup = make(map[string]*sessionEntry[T])
}

// EvictStale removes entries unused for longer than the configured
// stale duration and reports their ids.
func (s *SessionLookup[T]) EvictStale() []string {
	if s.stale <= 0 {
		return nil
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	deadline := time.Now().Add(-s.stale)
	var ret []string
	for id, entry := range s.lookup {
		if entry.lastUsed.Before(deadline) {
			delete(s.lookup, id)
			ret = append(ret, id)
		}
	}
	slices.Sort(ret)
	return ret
}
