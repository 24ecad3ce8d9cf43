package mail

import (
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned when the queue's buffer is exhausted.
	// Callers decide whether that is fatal; confirmation mail is not.
	ErrQueueFull = errors.New("mail: queue full")

	// ErrQueueClosed is returned once Close has been called.
	ErrQueueClosed = errors.New("mail: queue closed")
)

// Job is a single outbound message.
type Job struct {
	Recipient string
	Subject   string
	BodyHTML  string
}

// Queue is a bounded in-process buffer between request handlers and the
// delivery worker. Enqueue never blocks: a full buffer is reported, not
// waited on, so a slow mail provider cannot stall sign-up requests.
type Queue struct {
	jobs chan Job

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue buffering up to size jobs.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{jobs: make(chan Job, size)}
}

// Enqueue adds a job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs. Already-buffered jobs remain readable from
// Jobs so the worker can drain them during shutdown. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

// Jobs exposes the receive side for the worker.
func (q *Queue) Jobs() <-chan Job {
	return q.jobs
}
