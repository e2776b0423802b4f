package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Job is one queued notification.
type Job struct {
	ID         uuid.UUID `json:"id"`
	Message    Message   `json:"message"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RedisQueue is a Notifier backed by a redis list. Enqueue is the only
// operation the request path touches; Dequeue runs in the notify worker.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

var _ Notifier = (*RedisQueue)(nil)

func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	job := Job{
		ID:         uuid.New(),
		Message:    msg,
		EnqueuedAt: time.Now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal notify job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue notify job: %w", err)
	}
	return nil
}

// Dequeue blocks up to wait for the next job. Returns (nil, nil) when the
// wait elapses with an empty queue.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue notify job: %w", err)
	}
	// BRPop yields [key, value].
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal notify job: %w", err)
	}
	return &job, nil
}
