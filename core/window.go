package core

import (
	"strings"
	"sync"
)

// DefaultWindowCapacity is the default bound on the event window
const DefaultWindowCapacity = 1000

// EventWindow is a bounded buffer of the most recent canonical events.
// Multiple producers append concurrently; readers get point-in-time copies so
// a correlation sweep never observes a partially evicted buffer. When the
// buffer exceeds its capacity the oldest entries are evicted (FIFO).
type EventWindow struct {
	mu       sync.RWMutex
	events   []*Event
	capacity int
	counts   map[Level]int64 // cumulative counts by level, survives eviction
}

// NewEventWindow creates an event window with the given capacity.
// A non-positive capacity falls back to the default.
func NewEventWindow(capacity int) *EventWindow {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return &EventWindow{
		events:   make([]*Event, 0, capacity),
		capacity: capacity,
		counts:   make(map[Level]int64),
	}
}

// Append adds an event to the window, evicting the oldest entries if the
// capacity is exceeded. Append order is preserved per caller; cross-caller
// order is whatever the lock grants.
func (w *EventWindow) Append(event *Event) {
	if event == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, event)
	w.counts[event.Level]++

	if len(w.events) > w.capacity {
		over := len(w.events) - w.capacity
		w.events = append(w.events[:0:0], w.events[over:]...)
	}
}

// Recent returns up to n events, newest first
func (w *EventWindow) Recent(n int) []*Event {
	return w.Snapshot(n)
}

// Snapshot returns a copy of up to n of the most recent events, newest first.
// The returned slice is owned by the caller.
func (w *EventWindow) Snapshot(n int) []*Event {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if n <= 0 || n > len(w.events) {
		n = len(w.events)
	}

	out := make([]*Event, 0, n)
	for i := len(w.events) - 1; i >= len(w.events)-n; i-- {
		out = append(out, w.events[i])
	}
	return out
}

// SearchFilter narrows a window search. Zero values match everything.
type SearchFilter struct {
	Text   string
	Level  Level
	Source string
	Limit  int
}

// Search returns events matching the filter, newest first
func (w *EventWindow) Search(filter SearchFilter) []*Event {
	w.mu.RLock()
	defer w.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = len(w.events)
	}

	text := strings.ToLower(filter.Text)
	out := make([]*Event, 0)
	for i := len(w.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := w.events[i]
		if text != "" && !strings.Contains(strings.ToLower(e.Message), text) {
			continue
		}
		if filter.Level != "" && e.Level != filter.Level {
			continue
		}
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of events currently buffered
func (w *EventWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.events)
}

// Capacity returns the window's fixed capacity
func (w *EventWindow) Capacity() int {
	return w.capacity
}

// CountsByLevel returns cumulative ingestion counts per level. Counts are
// not decremented on eviction; they reflect everything ever appended.
func (w *EventWindow) CountsByLevel() map[Level]int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[Level]int64, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}
