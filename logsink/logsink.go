// Package logsink keeps an in-memory, newest-first record of leveled log
// messages for the diagnostics panel. A Sink doubles as a slog.Handler so
// the rest of the module logs through *slog.Logger as usual.
package logsink

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LevelSuccess sits between info and warn and marks a completed step.
const LevelSuccess = slog.Level(2)

// Level names as shown to users.
const (
	LevelNameInfo    = "info"
	LevelNameError   = "error"
	LevelNameSuccess = "success"
)

// DefaultMaxEntries bounds the in-memory record.
const DefaultMaxEntries = 1000

// Entry is one recorded message.
type Entry struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"timestamp"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Listener receives the full record, newest first, after every change.
type Listener func([]Entry)

// Sink is safe for concurrent use.
type Sink struct {
	mu        sync.Mutex
	entries   []Entry
	listeners map[int]Listener
	nextID    int
	max       int
	now       func() time.Time
}

// New returns an empty sink holding at most max entries; max <= 0 means
// DefaultMaxEntries.
func New(max int) *Sink {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &Sink{
		listeners: make(map[int]Listener),
		max:       max,
		now:       time.Now,
	}
}

func (s *Sink) Info(msg string, details map[string]any) { s.Add(LevelNameInfo, msg, details) }
func (s *Sink) Error(msg string, details map[string]any) { s.Add(LevelNameError, msg, details) }
func (s *Sink) Success(msg string, details map[string]any) { s.Add(LevelNameSuccess, msg, details) }

// Add records a message at the named level and notifies listeners.
func (s *Sink) Add(level, msg string, details map[string]any) {
	e := Entry{
		ID:      uuid.NewString(),
		Time:    s.now(),
		Level:   level,
		Message: msg,
		Details: details,
	}

	s.mu.Lock()
	s.entries = slices.Insert(s.entries, 0, e)
	if len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
	s.mu.Unlock()

	s.notify()
}

// Entries returns a copy of the record, newest first.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Subscribe registers fn and immediately calls it with the current record.
// The returned func removes the subscription.
func (s *Sink) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	snapshot := slices.Clone(s.entries)
	s.mu.Unlock()

	fn(snapshot)
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Clear drops every entry.
func (s *Sink) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Sink) notify() {
	s.mu.Lock()
	snapshot := slices.Clone(s.entries)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

// LevelName maps a slog level onto the sink's three levels.
func LevelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return LevelNameError
	case l == LevelSuccess:
		return LevelNameSuccess
	default:
		return LevelNameInfo
	}
}
