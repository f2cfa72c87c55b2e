package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnqueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(2, 0, nil, zap.NewNop())

	require.NoError(t, q.Enqueue(uuid.New()))
	require.NoError(t, q.Enqueue(uuid.New()))
	assert.ErrorIs(t, q.Enqueue(uuid.New()), ErrQueueFull)
}

func TestSingleWorkerSerializesExecution(t *testing.T) {
	var mu sync.Mutex
	var running int
	var maxRunning int
	var executed []uuid.UUID

	execute := func(_ context.Context, jobID uuid.UUID) {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		running--
		executed = append(executed, jobID)
		mu.Unlock()
	}

	q := NewQueue(8, 1, execute, zap.NewNop())

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, q.Enqueue(id))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, ids, executed, "jobs run in submission order")
	assert.Equal(t, 1, maxRunning, "one worker means one resident pipeline")
}

func TestCloseIsIdempotent(t *testing.T) {
	q := NewQueue(1, 1, func(context.Context, uuid.UUID) {}, zap.NewNop())
	q.Start(context.Background())

	q.Close()
	assert.NotPanics(t, q.Close)
}
