package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(level Level, source, message string) *Event {
	e := NewEvent()
	e.Level = level
	e.Source = source
	e.Message = message
	return e
}

func TestEventWindow_AppendAndLen(t *testing.T) {
	w := NewEventWindow(10)
	assert.Equal(t, 0, w.Len())

	w.Append(makeEvent(LevelInfo, "app", "hello"))
	w.Append(makeEvent(LevelError, "app", "boom"))
	assert.Equal(t, 2, w.Len())
}

func TestEventWindow_AppendNilIsNoop(t *testing.T) {
	w := NewEventWindow(10)
	w.Append(nil)
	assert.Equal(t, 0, w.Len())
}

func TestEventWindow_EvictsOldestAtCapacity(t *testing.T) {
	w := NewEventWindow(3)
	for i := 0; i < 5; i++ {
		w.Append(makeEvent(LevelInfo, "app", fmt.Sprintf("msg-%d", i)))
	}

	assert.Equal(t, 3, w.Len())

	snapshot := w.Snapshot(0)
	require.Len(t, snapshot, 3)
	assert.Equal(t, "msg-4", snapshot[0].Message)
	assert.Equal(t, "msg-3", snapshot[1].Message)
	assert.Equal(t, "msg-2", snapshot[2].Message)
}

func TestEventWindow_NonPositiveCapacityUsesDefault(t *testing.T) {
	w := NewEventWindow(0)
	assert.Equal(t, DefaultWindowCapacity, w.Capacity())
}

func TestEventWindow_SnapshotNewestFirst(t *testing.T) {
	w := NewEventWindow(10)
	w.Append(makeEvent(LevelInfo, "app", "first"))
	w.Append(makeEvent(LevelInfo, "app", "second"))
	w.Append(makeEvent(LevelInfo, "app", "third"))

	snapshot := w.Snapshot(2)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "third", snapshot[0].Message)
	assert.Equal(t, "second", snapshot[1].Message)
}

func TestEventWindow_SnapshotIsACopy(t *testing.T) {
	w := NewEventWindow(10)
	w.Append(makeEvent(LevelInfo, "app", "only"))

	snapshot := w.Snapshot(0)
	snapshot[0] = nil
	assert.Equal(t, "only", w.Snapshot(0)[0].Message)
}

func TestEventWindow_Search(t *testing.T) {
	w := NewEventWindow(10)
	w.Append(makeEvent(LevelInfo, "nginx", "GET /index.html"))
	w.Append(makeEvent(LevelError, "app", "Database connection FAILED"))
	w.Append(makeEvent(LevelError, "nginx", "upstream timed out"))
	w.Append(makeEvent(LevelWarning, "app", "slow query detected"))

	testCases := []struct {
		name     string
		filter   SearchFilter
		expected []string
	}{
		{"no filter returns everything newest first", SearchFilter{},
			[]string{"slow query detected", "upstream timed out", "Database connection FAILED", "GET /index.html"}},
		{"text match is case insensitive", SearchFilter{Text: "failed"},
			[]string{"Database connection FAILED"}},
		{"level filter", SearchFilter{Level: LevelError},
			[]string{"upstream timed out", "Database connection FAILED"}},
		{"source filter", SearchFilter{Source: "nginx"},
			[]string{"upstream timed out", "GET /index.html"}},
		{"combined filters", SearchFilter{Level: LevelError, Source: "nginx"},
			[]string{"upstream timed out"}},
		{"limit caps results", SearchFilter{Limit: 2},
			[]string{"slow query detected", "upstream timed out"}},
		{"no match returns empty", SearchFilter{Text: "nothing here"},
			[]string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results := w.Search(tc.filter)
			messages := make([]string, 0, len(results))
			for _, e := range results {
				messages = append(messages, e.Message)
			}
			assert.Equal(t, tc.expected, messages)
		})
	}
}

func TestEventWindow_CountsByLevelSurviveEviction(t *testing.T) {
	w := NewEventWindow(2)
	for i := 0; i < 5; i++ {
		w.Append(makeEvent(LevelError, "app", "boom"))
	}
	w.Append(makeEvent(LevelInfo, "app", "ok"))

	counts := w.CountsByLevel()
	assert.Equal(t, int64(5), counts[LevelError])
	assert.Equal(t, int64(1), counts[LevelInfo])
	assert.Equal(t, 2, w.Len())
}
