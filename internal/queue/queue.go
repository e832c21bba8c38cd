package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultKey is the Redis list holding outbound direct messages.
	DefaultKey = "bot:outbound_dm"
	// DefaultMaxRetries is the number of delivery attempts before a job moves to the DLQ.
	DefaultMaxRetries = 3
	// RetryBackoff is the delay a worker waits after a failed delivery.
	RetryBackoff = 5 * time.Second
)

// DirectMessageJob asks the bot to DM a Discord user.
type DirectMessageJob struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Text       string    `json:"text"`
	TicketID   string    `json:"ticket_id,omitempty"`
	Attempt    int       `json:"attempt"`
	CreatedAt  time.Time `json:"created_at"`
}

// Queue enqueues and dequeues direct message jobs via a Redis list.
type Queue struct {
	client     *redis.Client
	key        string
	maxRetries int
	logger     *zap.Logger
}

// NewQueue creates a Redis-backed queue. Empty key and non-positive maxRetries fall back to defaults.
func NewQueue(client *redis.Client, key string, maxRetries int, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultKey
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{client: client, key: key, maxRetries: maxRetries, logger: logger}
}

// DLQKey is the dead-letter list for jobs that exhausted their retries.
func (q *Queue) DLQKey() string {
	return q.key + ":dlq"
}

// EnqueueDirectMessage pushes a DM job.
func (q *Queue) EnqueueDirectMessage(ctx context.Context, job DirectMessageJob) error {
	if job.ExternalID == "" {
		return errors.New("direct message job requires an external id")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	job.Attempt = 0
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued direct message job", zap.String("job_id", job.ID), zap.String("ticket_id", job.TicketID))
	return nil
}

// Dequeue blocks up to timeout for a job. It returns nil, nil when the wait times out
// or the payload is malformed.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*DirectMessageJob, error) {
	result, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job DirectMessageJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with an incremented attempt, or moves it to the DLQ once
// the attempt count reaches the retry limit.
func (q *Queue) Retry(ctx context.Context, job *DirectMessageJob) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= q.maxRetries {
		if err := q.client.RPush(ctx, q.DLQKey(), raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, q.key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Len reports the number of pending jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
