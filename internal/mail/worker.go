package mail

import (
	"context"
	"log/slog"

	"github.com/Promise30/promise-auth/internal/logger"
)

// Worker drains a queue and hands each job to a sender. Delivery failures
// are logged and dropped; there is no retry, the user can request another
// confirmation email.
type Worker struct {
	queue  *Queue
	sender EmailSender
	log    *slog.Logger
}

func NewWorker(queue *Queue, sender EmailSender, log *slog.Logger) *Worker {
	return &Worker{queue: queue, sender: sender, log: log}
}

// Run delivers jobs until the queue is closed and drained, or ctx is
// cancelled. After the queue closes, buffered jobs are still delivered,
// which is what lets shutdown flush pending confirmations.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.log.Warn("mail worker stopping, undelivered jobs dropped",
				slog.Int("remaining", len(w.queue.Jobs())),
			)
			return
		case job, ok := <-w.queue.Jobs():
			if !ok {
				return
			}
			if err := w.sender.SendEmail(ctx, job); err != nil {
				w.log.Error("email delivery failed",
					slog.String("to", job.Recipient),
					slog.String("subject", job.Subject),
					logger.Error(err),
				)
			}
		}
	}
}
