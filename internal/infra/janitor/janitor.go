package janitor

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor evicts finished jobs past the retention window and removes their
// run directories and archives. Running jobs are never touched.
type Janitor struct {
	store     port.JobStore
	runsDir   string
	uploadDir string
	retention time.Duration
	logger    *zap.Logger
	cron      *cron.Cron
}

func New(store port.JobStore, runsDir, uploadDir string, retention time.Duration, logger *zap.Logger) *Janitor {
	return &Janitor{
		store:     store,
		runsDir:   runsDir,
		uploadDir: uploadDir,
		retention: retention,
		logger:    logger,
		cron:      cron.New(),
	}
}

func (j *Janitor) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, j.Sweep); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	j.cron.Stop()
}

// Sweep is exported so tests and operators can trigger a pass directly.
func (j *Janitor) Sweep() {
	cutoff := time.Now().UTC().Add(-j.retention)
	evicted := 0

	for _, snap := range j.store.Snapshots() {
		if !snap.State.Terminal() {
			continue
		}
		if snap.CompletedAt == nil || snap.CompletedAt.After(cutoff) {
			continue
		}

		j.store.Delete(snap.ID)
		j.removeArtifacts(snap)
		evicted++
	}

	if evicted > 0 {
		j.logger.Info("retention sweep evicted jobs", zap.Int("count", evicted))
	}
}

func (j *Janitor) removeArtifacts(snap entity.Snapshot) {
	id := snap.ID.String()
	if err := os.RemoveAll(filepath.Join(j.runsDir, id)); err != nil {
		j.logger.Warn("failed to remove run dir", zap.String("job_id", id), zap.Error(err))
	}
	if snap.ArchivePath != "" {
		if err := os.Remove(snap.ArchivePath); err != nil && !os.IsNotExist(err) {
			j.logger.Warn("failed to remove archive", zap.String("job_id", id), zap.Error(err))
		}
	}

	uploads, err := filepath.Glob(filepath.Join(j.uploadDir, id+"*"))
	if err != nil {
		return
	}
	for _, upload := range uploads {
		if err := os.Remove(upload); err != nil && !os.IsNotExist(err) {
			j.logger.Warn("failed to remove upload", zap.String("job_id", id), zap.Error(err))
		}
	}
}
