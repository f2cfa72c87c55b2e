package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Jayliang7/VideoSplice/internal/domain/entity"
	"github.com/Jayliang7/VideoSplice/internal/domain/port"
	"github.com/Jayliang7/VideoSplice/internal/infra/metrics"
	"go.uber.org/zap"
)

// batchScheduler drives the lazy frame stream through labeling in fixed
// batches. Batching is what bounds the number of simultaneously resident
// decoded frames and in-flight labeling calls: the guard is consulted
// before every batch, and a forced cleanup runs after every batch before
// the next one is pulled. Batches are strictly sequential; overlapping
// them would defeat the cleanup.
type batchScheduler struct {
	guard     port.MemoryGuard
	labeler   port.FrameLabeler
	batchSize int
	logger    *zap.Logger
}

// errDecode wraps a frame-decode failure so the pipeline can classify it
// apart from memory-guard failures.
type errDecode struct{ err error }

func (e errDecode) Error() string { return e.err.Error() }
func (e errDecode) Unwrap() error { return e.err }

// run consumes the stream to exhaustion or first failure. onBatch is
// invoked after each completed batch with the running totals.
func (b *batchScheduler) run(
	ctx context.Context,
	stream port.FrameStream,
	framesDir string,
	onBatch func(processed, total int),
) ([]entity.FrameRecord, map[int]entity.LabelResult, error) {
	total := stream.Total()
	frames := make([]entity.FrameRecord, 0, total)
	labels := make(map[int]entity.LabelResult, total)

	for {
		if err := b.guard.EnsureWithin(); err != nil {
			return nil, nil, err
		}

		batch, done, err := b.pullBatch(ctx, stream)
		if err != nil {
			return nil, nil, errDecode{err}
		}

		for _, frame := range batch {
			result := b.labeler.Label(ctx, frame, framesDir)
			if !result.Available {
				metrics.LabelsUnavailableTotal.Inc()
			}
			labels[frame.Index] = result
			frames = append(frames, frame)
		}

		if len(batch) > 0 {
			metrics.BatchesTotal.Inc()
			metrics.FramesSampledTotal.Add(float64(len(batch)))

			// Cleanup runs unconditionally between batches; the guard
			// check after it catches residency the cleanup could not
			// reclaim.
			b.guard.ForceCleanup()
			if err := b.guard.EnsureWithin(); err != nil {
				return nil, nil, err
			}

			b.logger.Debug("batch processed",
				zap.Int("batch_size", len(batch)),
				zap.Int("processed", len(frames)),
				zap.Int("total", total),
			)
			if onBatch != nil {
				onBatch(len(frames), total)
			}
		}

		if done {
			break
		}
	}

	if len(frames) == 0 {
		return nil, nil, errDecode{errors.New("no frames sampled from video")}
	}
	return frames, labels, nil
}

// pullBatch takes up to batchSize frames from the stream. done reports
// end-of-sequence; a short (or empty) final batch is normal.
func (b *batchScheduler) pullBatch(ctx context.Context, stream port.FrameStream) ([]entity.FrameRecord, bool, error) {
	batch := make([]entity.FrameRecord, 0, b.batchSize)
	for len(batch) < b.batchSize {
		frame, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return batch, true, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("decode frame: %w", err)
		}
		batch = append(batch, frame)
	}
	return batch, false, nil
}
