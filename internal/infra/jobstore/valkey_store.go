package jobstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
)

const defaultJobTTL = 24 * time.Hour

// ValkeyStore persists batch jobs as JSON strings with a TTL.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "exoplanet"
	}
	if ttl <= 0 {
		ttl = defaultJobTTL
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ValkeyStore) Save(ctx context.Context, job batch.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	cmd := s.client.B().Set().Key(s.jobKey(job.ID)).Value(string(payload)).Ex(s.ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Get(ctx context.Context, id uuid.UUID) (batch.Job, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.jobKey(id)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return batch.Job{}, false, nil
		}
		return batch.Job{}, false, err
	}
	var job batch.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return batch.Job{}, false, err
	}
	return job, true, nil
}

func (s *ValkeyStore) jobKey(id uuid.UUID) string {
	return s.prefix + ":batch_job:" + id.String()
}

var _ batch.JobStore = (*ValkeyStore)(nil)
