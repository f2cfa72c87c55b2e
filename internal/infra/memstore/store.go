package memstore

import (
	"fmt"
	"sync"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/google/uuid"
)

// Store keeps every job in process memory. The pipeline executor is the
// single writer for a job; Update is the only mutation path and holds the
// write lock for the whole mutation, so readers always observe either the
// previous or the next consistent state, never a partial write.
type Store struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
}

func New() *Store {
	return &Store{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (s *Store) Create(job *entity.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *Store) Update(id uuid.UUID, fn func(*entity.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return entity.ErrJobNotFound
	}
	return fn(job)
}

func (s *Store) Snapshot(id uuid.UUID) (entity.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return entity.Snapshot{}, entity.ErrJobNotFound
	}
	return job.Snapshot(), nil
}

func (s *Store) Snapshots() []entity.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snaps := make([]entity.Snapshot, 0, len(s.jobs))
	for _, job := range s.jobs {
		snaps = append(snaps, job.Snapshot())
	}
	return snaps
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}
