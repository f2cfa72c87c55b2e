package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"github.com/Jayliang7/VideoSplice/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessVideoUseCase owns a job from Extracting through Done/Error. It is
// the only writer of a job's state once the worker hands it over; all
// mutations go through the store so the status boundary reads consistent
// snapshots.
type ProcessVideoUseCase struct {
	store    port.JobStore
	sampler  port.FrameSampler
	labeler  port.FrameLabeler
	clipper  port.ClipExtractor
	packager port.OutputPackager
	guard    port.MemoryGuard
	notifier port.FailureNotifier
	logger   *zap.Logger
	cfg      ProcessVideoConfig
}

type ProcessVideoConfig struct {
	RunsDir        string
	BatchSize      int
	SampleRateHz   float64
	SegmentSeconds float64
}

func NewProcessVideoUseCase(
	store port.JobStore,
	sampler port.FrameSampler,
	labeler port.FrameLabeler,
	clipper port.ClipExtractor,
	packager port.OutputPackager,
	guard port.MemoryGuard,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		store:    store,
		sampler:  sampler,
		labeler:  labeler,
		clipper:  clipper,
		packager: packager,
		guard:    guard,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// Execute runs the whole pipeline for one job. It never returns an error
// that should crash the worker; every failure lands on the job itself.
func (uc *ProcessVideoUseCase) Execute(ctx context.Context, jobID uuid.UUID) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID.String()))

	log := uc.logger.With(zap.String("job_id", jobID.String()))

	snap, err := uc.store.Snapshot(jobID)
	if err != nil {
		log.Error("job vanished before execution", zap.Error(err))
		return
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()
	totalTimer := time.Now()

	if err := uc.runPipeline(ctx, snap, log); err != nil {
		kind, detail := classifyFailure(err)
		uc.failJob(ctx, jobID, snap, kind, detail, log)
		return
	}

	metrics.JobsFinishedTotal.WithLabelValues(string(entity.JobStateDone), "").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	log.Info("job completed", zap.Duration("elapsed", time.Since(totalTimer)))
}

func (uc *ProcessVideoUseCase) runPipeline(ctx context.Context, snap entity.Snapshot, log *zap.Logger) error {
	tracer := otel.Tracer("usecase")
	jobID := snap.ID

	framesDir := filepath.Join(uc.cfg.RunsDir, jobID.String(), "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}
	// The archive carries the frames; the working copies are not needed
	// once the job is terminal.
	defer os.RemoveAll(filepath.Join(uc.cfg.RunsDir, jobID.String()))

	// Extracting: pre-flight checks and the sampling plan.
	if err := uc.transition(jobID, entity.JobStateExtracting); err != nil {
		return err
	}
	if err := uc.guard.EnsureWithin(); err != nil {
		return err
	}

	exStart := time.Now()
	ctxEx, spanEx := tracer.Start(ctx, "open_sampler")
	stream, err := uc.sampler.Open(ctxEx, snap.SourcePath, framesDir)
	spanEx.End()
	if err != nil {
		return fmt.Errorf("open frame sampler: %w", err)
	}
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	// Labeling: the batch loop pulls frames lazily and labels them in
	// order, so decode and label interleave under one guard regime.
	if err := uc.transition(jobID, entity.JobStateLabeling); err != nil {
		return err
	}
	// A breaker tripped by a previous job's outage must not carry over.
	uc.labeler.Reset()

	labelStart := time.Now()
	ctxLabel, spanLabel := tracer.Start(ctx, "label_batches")
	scheduler := &batchScheduler{
		guard:     uc.guard,
		labeler:   uc.labeler,
		batchSize: uc.cfg.BatchSize,
		logger:    log,
	}
	frames, labels, err := scheduler.run(ctxLabel, stream, framesDir, func(processed, total int) {
		uc.publishBatchProgress(jobID, processed, total)
	})
	spanLabel.End()
	if err != nil {
		return err
	}
	metrics.StageDuration.WithLabelValues("label").Observe(time.Since(labelStart).Seconds())

	reps := selectRepresentatives(frames, labels, uc.cfg.SegmentSeconds)

	// Packaging: archive written only after every batch succeeded, so a
	// memory abort never leaves partial results published.
	if err := uc.transition(jobID, entity.JobStatePackaging); err != nil {
		return err
	}
	if err := uc.guard.EnsureWithin(); err != nil {
		return err
	}

	// Clips are stream copies of the representative segments; a failed cut
	// skips that clip without failing the job.
	clipsDir := filepath.Join(uc.cfg.RunsDir, jobID.String(), "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return packagingError{fmt.Errorf("create clips dir: %w", err)}
	}
	ctxClips, spanClips := tracer.Start(ctx, "cut_clips")
	clips := uc.clipper.Cut(ctxClips, snap.SourcePath, clipsDir, clipSpans(frames, uc.cfg.SegmentSeconds))
	spanClips.End()

	packStart := time.Now()
	ctxPack, spanPack := tracer.Start(ctx, "package_archive")
	archivePath, err := uc.packager.Package(ctxPack, port.PackageInput{
		JobID:           jobID.String(),
		FramesDir:       framesDir,
		ClipsDir:        clipsDir,
		Props:           stream.Props(),
		SampleRateHz:    uc.cfg.SampleRateHz,
		Frames:          frames,
		Labels:          labels,
		Representatives: reps,
		Clips:           clips,
	})
	spanPack.End()
	if err != nil {
		return packagingError{err}
	}
	metrics.StageDuration.WithLabelValues("package").Observe(time.Since(packStart).Seconds())

	uc.guard.ForceCleanup()
	if err := uc.guard.EnsureWithin(); err != nil {
		os.Remove(archivePath)
		return err
	}

	return uc.store.Update(jobID, func(j *entity.Job) error {
		j.Frames = frames
		j.Labels = labels
		return j.MarkDone(archivePath)
	})
}

func (uc *ProcessVideoUseCase) transition(jobID uuid.UUID, next entity.JobState) error {
	return uc.store.Update(jobID, func(j *entity.Job) error {
		return j.Transition(next)
	})
}

// publishBatchProgress maps batch completion onto the job's progress
// fraction, reserving the final stretch for packaging.
func (uc *ProcessVideoUseCase) publishBatchProgress(jobID uuid.UUID, processed, total int) {
	if total <= 0 {
		return
	}
	fraction := 0.9 * float64(processed) / float64(total)
	_ = uc.store.Update(jobID, func(j *entity.Job) error {
		j.SetProgress(fraction)
		return nil
	})
}

func (uc *ProcessVideoUseCase) failJob(
	ctx context.Context,
	jobID uuid.UUID,
	snap entity.Snapshot,
	kind entity.ErrorKind,
	detail string,
	log *zap.Logger,
) {
	if err := uc.store.Update(jobID, func(j *entity.Job) error {
		return j.MarkFailed(kind, detail)
	}); err != nil {
		log.Error("failed to record job failure", zap.Error(err))
	}

	metrics.JobsFinishedTotal.WithLabelValues(string(entity.JobStateError), string(kind)).Inc()
	log.Error("job failed", zap.String("kind", string(kind)), zap.String("detail", detail))

	if uc.notifier != nil {
		_ = uc.notifier.NotifyFailure(ctx, jobID.String(), snap.SourceName, detail)
	}
}

// packagingError tags archive-write failures for classification.
type packagingError struct{ err error }

func (e packagingError) Error() string { return e.err.Error() }
func (e packagingError) Unwrap() error { return e.err }

func classifyFailure(err error) (entity.ErrorKind, string) {
	var pkgErr packagingError
	switch {
	case errors.Is(err, entity.ErrMemoryLimitExceeded):
		return entity.ErrKindMemoryLimitExceeded, err.Error()
	case errors.Is(err, entity.ErrOversizedSource):
		return entity.ErrKindOversizedUpload, err.Error()
	case errors.As(err, &pkgErr):
		return entity.ErrKindPackagingFailure, err.Error()
	default:
		return entity.ErrKindDecodeFailure, err.Error()
	}
}
