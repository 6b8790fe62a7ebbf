package classifier

import (
	"context"
	"sync"
)

// DefaultHistoryLimit is the number of entries kept by HistoryLog.
const DefaultHistoryLimit = 5

// HistoryLog keeps the most recent successful classifications, newest first.
type HistoryLog struct {
	mu      sync.RWMutex
	limit   int
	entries []HistoryEntry
}

// NewHistoryLog builds a log bounded to limit entries.
func NewHistoryLog(limit int) *HistoryLog {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryLog{limit: limit, entries: make([]HistoryEntry, 0, limit)}
}

// Record prepends an entry and evicts the oldest beyond the limit.
func (l *HistoryLog) Record(entry HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]HistoryEntry{entry}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
}

// Entries returns a copy of the log, newest first.
func (l *HistoryLog) Entries() []HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored entries.
func (l *HistoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// SimilarEntry pairs a history entry with its feature distance to a query.
type SimilarEntry struct {
	Entry    HistoryEntry `json:"entry"`
	Distance float64      `json:"distance"`
}

// HistoryStore persists history entries.
type HistoryStore interface {
	Append(ctx context.Context, entry HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
	Similar(ctx context.Context, params ParameterSet, k int) ([]SimilarEntry, error)
}
