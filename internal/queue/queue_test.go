// internal/queue/queue_test.go
package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, RenderJob{VideoID: "v1", UserID: "u"}))
	require.NoError(t, q.Enqueue(ctx, RenderJob{VideoID: "v2", UserID: "u"}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", job.VideoID)

	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", job.VideoID)
}

func TestMemoryQueueDequeueHonoursContext(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueueFullEnqueueBlocksUntilContextDone(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), RenderJob{VideoID: "v1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, RenderJob{VideoID: "v2"}), context.DeadlineExceeded)
}

func TestMemoryQueueClose(t *testing.T) {
	q := NewMemoryQueue(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(context.Background(), RenderJob{VideoID: "v1"}), ErrClosed)
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewWithoutRedisUsesMemory(t *testing.T) {
	q, err := New("", "render", 8)
	require.NoError(t, err)
	assert.IsType(t, &MemoryQueue{}, q)
}
