package janitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/infra/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedTerminalJob(t *testing.T, store *memstore.Store, archivePath string, completedAgo time.Duration) *entity.Job {
	t.Helper()
	job := entity.NewJob("clip.mp4", 1)
	require.NoError(t, store.Create(job))
	require.NoError(t, store.Update(job.ID, func(j *entity.Job) error {
		for _, s := range []entity.JobState{
			entity.JobStateUploading, entity.JobStateExtracting,
			entity.JobStateLabeling, entity.JobStatePackaging,
		} {
			if err := j.Transition(s); err != nil {
				return err
			}
		}
		if err := j.MarkDone(archivePath); err != nil {
			return err
		}
		completed := time.Now().UTC().Add(-completedAgo)
		j.CompletedAt = &completed
		return nil
	}))
	return job
}

func TestSweepEvictsExpiredTerminalJobs(t *testing.T) {
	store := memstore.New()
	runsDir := t.TempDir()
	uploadDir := t.TempDir()
	outputDir := t.TempDir()

	archivePath := filepath.Join(outputDir, "old.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("zip"), 0o644))
	old := seedTerminalJob(t, store, archivePath, 2*time.Hour)

	require.NoError(t, os.MkdirAll(filepath.Join(runsDir, old.ID.String()), 0o755))
	uploadPath := filepath.Join(uploadDir, old.ID.String()+".mp4")
	require.NoError(t, os.WriteFile(uploadPath, []byte("mp4"), 0o644))

	j := New(store, runsDir, uploadDir, time.Hour, zap.NewNop())
	j.Sweep()

	_, err := store.Snapshot(old.ID)
	assert.ErrorIs(t, err, entity.ErrJobNotFound)

	for _, path := range []string{archivePath, uploadPath, filepath.Join(runsDir, old.ID.String())} {
		_, err := os.Stat(path)
		assert.True(t, os.IsNotExist(err), "artifact %s must be removed", path)
	}
}

func TestSweepKeepsRecentAndRunningJobs(t *testing.T) {
	store := memstore.New()
	j := New(store, t.TempDir(), t.TempDir(), time.Hour, zap.NewNop())

	recent := seedTerminalJob(t, store, "", 10*time.Minute)

	running := entity.NewJob("wip.mp4", 1)
	require.NoError(t, store.Create(running))
	require.NoError(t, store.Update(running.ID, func(job *entity.Job) error {
		return job.Transition(entity.JobStateUploading)
	}))

	j.Sweep()

	_, err := store.Snapshot(recent.ID)
	assert.NoError(t, err, "a job inside the retention window stays")
	_, err = store.Snapshot(running.ID)
	assert.NoError(t, err, "a running job is never evicted regardless of age")
}

func TestSweepEvictsExpiredFailedJobs(t *testing.T) {
	store := memstore.New()

	failed := entity.NewJob("bad.mp4", 1)
	require.NoError(t, store.Create(failed))
	require.NoError(t, store.Update(failed.ID, func(job *entity.Job) error {
		if err := job.Transition(entity.JobStateUploading); err != nil {
			return err
		}
		if err := job.MarkFailed(entity.ErrKindDecodeFailure, "corrupt"); err != nil {
			return err
		}
		completed := time.Now().UTC().Add(-2 * time.Hour)
		job.CompletedAt = &completed
		return nil
	}))

	j := New(store, t.TempDir(), t.TempDir(), time.Hour, zap.NewNop())
	j.Sweep()

	_, err := store.Snapshot(failed.ID)
	assert.ErrorIs(t, err, entity.ErrJobNotFound)
}
