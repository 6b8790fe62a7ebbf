package historystore

import (
	"context"
	"math"
	"sort"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

// MemoryStore keeps history in process memory, bounded like the in-page log.
type MemoryStore struct {
	log *classifier.HistoryLog
}

// NewMemoryStore constructs a store holding at most limit entries.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{log: classifier.NewHistoryLog(limit)}
}

func (s *MemoryStore) Append(_ context.Context, entry classifier.HistoryEntry) error {
	s.log.Record(entry)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]classifier.HistoryEntry, error) {
	return truncate(s.log.Entries(), limit), nil
}

// Similar ranks stored entries by Euclidean distance over the required parameters.
func (s *MemoryStore) Similar(_ context.Context, params classifier.ParameterSet, k int) ([]classifier.SimilarEntry, error) {
	return rankBySimilarity(s.log.Entries(), params, k), nil
}

func truncate(entries []classifier.HistoryEntry, limit int) []classifier.HistoryEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

func rankBySimilarity(entries []classifier.HistoryEntry, params classifier.ParameterSet, k int) []classifier.SimilarEntry {
	query := params.Features()
	out := make([]classifier.SimilarEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, classifier.SimilarEntry{Entry: entry, Distance: euclidean(query, entry.Inputs.Features())})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		if i >= len(b) {
			break
		}
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

var _ classifier.HistoryStore = (*MemoryStore)(nil)
