package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/queue"
)

const dequeueTimeout = 5 * time.Second

// DirectMessageSender delivers a DM to a Discord user.
type DirectMessageSender interface {
	Reply(ctx context.Context, externalID, text string) error
}

// JobQueue is the subset of the Redis queue the worker consumes.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.DirectMessageJob, error)
	Retry(ctx context.Context, job *queue.DirectMessageJob) error
}

// DirectMessageWorker drains queued requester notifications through the bot.
type DirectMessageWorker struct {
	queue   JobQueue
	sender  DirectMessageSender
	logger  *zap.Logger
	backoff time.Duration
}

// NewDirectMessageWorker constructs the worker.
func NewDirectMessageWorker(q JobQueue, sender DirectMessageSender, logger *zap.Logger) *DirectMessageWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectMessageWorker{queue: q, sender: sender, logger: logger, backoff: queue.RetryBackoff}
}

// Process delivers one job.
func (w *DirectMessageWorker) Process(ctx context.Context, job *queue.DirectMessageJob) error {
	return w.sender.Reply(ctx, job.ExternalID, job.Text)
}

// Run starts the worker loop: dequeue, deliver, retry on error.
func (w *DirectMessageWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("direct message worker stopping")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			w.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("delivering direct message", zap.String("job_id", job.ID), zap.String("ticket_id", job.TicketID))
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error("direct message failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			w.sleep(ctx)
		}
	}
}

func (w *DirectMessageWorker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.backoff):
	}
}
