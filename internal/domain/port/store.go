package port

import (
	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/google/uuid"
)

// JobStore is the authoritative record of job lifecycles. The pipeline is
// the only writer for a given job; the status boundary reads consistent
// value-copy snapshots.
type JobStore interface {
	Create(job *entity.Job) error
	// Update applies fn to the stored job under the store's write lock.
	// The mutation becomes visible to readers atomically.
	Update(id uuid.UUID, fn func(*entity.Job) error) error
	Snapshot(id uuid.UUID) (entity.Snapshot, error)
	// Snapshots lists every tracked job, for the janitor sweep.
	Snapshots() []entity.Snapshot
	Delete(id uuid.UUID)
}
