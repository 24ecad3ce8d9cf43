package mail

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueAndDrain(t *testing.T) {
	q := NewQueue(4)

	require.NoError(t, q.Enqueue(Job{Recipient: "a@x.com"}))
	require.NoError(t, q.Enqueue(Job{Recipient: "b@x.com"}))

	assert.Equal(t, "a@x.com", (<-q.Jobs()).Recipient)
	assert.Equal(t, "b@x.com", (<-q.Jobs()).Recipient)
}

func TestQueue_FullReportsInsteadOfBlocking(t *testing.T) {
	q := NewQueue(1)

	require.NoError(t, q.Enqueue(Job{Recipient: "a@x.com"}))

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(Job{Recipient: "b@x.com"}) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
}

func TestQueue_CloseStopsIntakeKeepsBuffer(t *testing.T) {
	q := NewQueue(4)
	require.NoError(t, q.Enqueue(Job{Recipient: "a@x.com"}))

	q.Close()
	q.Close() // idempotent

	assert.ErrorIs(t, q.Enqueue(Job{Recipient: "late@x.com"}), ErrQueueClosed)

	job, ok := <-q.Jobs()
	require.True(t, ok, "buffered job survives close")
	assert.Equal(t, "a@x.com", job.Recipient)

	_, ok = <-q.Jobs()
	assert.False(t, ok)
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewQueue(64)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(Job{Recipient: "a@x.com"})
		}()
	}
	wg.Wait()
	q.Close()

	n := 0
	for range q.Jobs() {
		n++
	}
	assert.Equal(t, 64, n)
}

type recordingSender struct {
	mu   sync.Mutex
	sent []Job
	err  error
}

func (s *recordingSender) SendEmail(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, job)
	return s.err
}

func TestWorker_DrainsOnClose(t *testing.T) {
	q := NewQueue(4)
	sender := &recordingSender{}
	w := NewWorker(q, sender, slog.New(slog.DiscardHandler))

	require.NoError(t, q.Enqueue(Job{Recipient: "a@x.com"}))
	require.NoError(t, q.Enqueue(Job{Recipient: "b@x.com"}))
	q.Close()

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after draining a closed queue")
	}
	assert.Len(t, sender.sent, 2)
}

func TestWorker_DeliveryFailureDoesNotStopRun(t *testing.T) {
	q := NewQueue(4)
	sender := &recordingSender{err: ErrSendFailed}
	w := NewWorker(q, sender, slog.New(slog.DiscardHandler))

	require.NoError(t, q.Enqueue(Job{Recipient: "a@x.com"}))
	require.NoError(t, q.Enqueue(Job{Recipient: "b@x.com"}))
	q.Close()

	w.Run(context.Background())
	assert.Len(t, sender.sent, 2, "worker kept going past the failure")
}
