package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueFull tells the upload boundary to push back instead of buffering
// unbounded work.
var ErrQueueFull = errors.New("job queue is full")

// ExecuteFunc runs one job end to end. It must absorb its own failures;
// the worker only logs.
type ExecuteFunc func(ctx context.Context, jobID uuid.UUID)

// Queue serializes job execution. Submission is concurrent (jobs buffer on
// the channel), but the reference deployment runs a single worker so at
// most one job's decode/label/package stages are resident at a time.
type Queue struct {
	jobs        chan uuid.UUID
	workerCount int
	execute     ExecuteFunc
	logger      *zap.Logger
	wg          sync.WaitGroup

	closeOnce sync.Once
}

func NewQueue(capacity, workerCount int, execute ExecuteFunc, logger *zap.Logger) *Queue {
	return &Queue{
		jobs:        make(chan uuid.UUID, capacity),
		workerCount: workerCount,
		execute:     execute,
		logger:      logger,
	}
}

// Enqueue is non-blocking: a full queue is reported to the caller rather
// than stalling the upload boundary.
func (q *Queue) Enqueue(jobID uuid.UUID) error {
	select {
	case q.jobs <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) Start(ctx context.Context) {
	q.logger.Info("starting job workers", zap.Int("workers", q.workerCount))
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case jobID, ok := <-q.jobs:
			if !ok {
				log.Info("job channel closed")
				return
			}
			log.Info("worker picked up job", zap.String("job_id", jobID.String()))
			q.execute(ctx, jobID)
		}
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}
