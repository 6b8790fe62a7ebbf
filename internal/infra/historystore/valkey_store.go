package historystore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

// ValkeyStore keeps history as a capped JSON list in Valkey.
type ValkeyStore struct {
	client valkey.Client
	key    string
	limit  int
}

// NewValkeyStore constructs a store backed by a Valkey list.
func NewValkeyStore(client valkey.Client, prefix string, limit int) *ValkeyStore {
	if prefix == "" {
		prefix = "exoplanet"
	}
	if limit <= 0 {
		limit = classifier.DefaultHistoryLimit
	}
	return &ValkeyStore{client: client, key: prefix + ":history", limit: limit}
}

// Append pushes the entry to the head of the list and trims the tail.
func (s *ValkeyStore) Append(ctx context.Context, entry classifier.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	cmds := valkey.Commands{
		s.client.B().Lpush().Key(s.key).Element(string(payload)).Build(),
		s.client.B().Ltrim().Key(s.key).Start(0).Stop(int64(s.limit - 1)).Build(),
	}
	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ValkeyStore) Recent(ctx context.Context, limit int) ([]classifier.HistoryEntry, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	return s.load(ctx, limit)
}

func (s *ValkeyStore) Similar(ctx context.Context, params classifier.ParameterSet, k int) ([]classifier.SimilarEntry, error) {
	entries, err := s.load(ctx, s.limit)
	if err != nil {
		return nil, err
	}
	return rankBySimilarity(entries, params, k), nil
}

func (s *ValkeyStore) load(ctx context.Context, limit int) ([]classifier.HistoryEntry, error) {
	values, err := s.client.Do(ctx, s.client.B().Lrange().Key(s.key).Start(0).Stop(int64(limit-1)).Build()).AsStrSlice()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]classifier.HistoryEntry, 0, len(values))
	for _, raw := range values {
		var entry classifier.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

var _ classifier.HistoryStore = (*ValkeyStore)(nil)
