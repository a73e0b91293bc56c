// internal/queue/queue.go
package queue

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("queue closed")

// RenderJob asks a render worker to produce the artifact for one video.
type RenderJob struct {
	VideoID    string    `json:"videoId"`
	UserID     string    `json:"userId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Queue hands render jobs to workers. Dequeue blocks until a job arrives or
// ctx is done.
type Queue interface {
	Enqueue(ctx context.Context, job RenderJob) error
	Dequeue(ctx context.Context) (*RenderJob, error)
	Len(ctx context.Context) (int64, error)
	Close() error
}

// New returns a Redis backed queue when redisURL is set and an in-process
// channel otherwise.
func New(redisURL, key string, size int) (Queue, error) {
	if redisURL == "" {
		return NewMemoryQueue(size), nil
	}
	return NewRedisQueue(redisURL, key)
}
