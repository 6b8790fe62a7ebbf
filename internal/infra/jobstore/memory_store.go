package jobstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yanqian/exoplanet-classifier/internal/domain/batch"
)

// MemoryStore keeps batch jobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]batch.Job
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]batch.Job)}
}

func (s *MemoryStore) Save(_ context.Context, job batch.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (batch.Job, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok, nil
}

var _ batch.JobStore = (*MemoryStore)(nil)
