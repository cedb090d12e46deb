package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgError "github.com/multiwa/multiwa/pkg/error"

	"github.com/multiwa/multiwa/messaging"
)

// sendOutcome is the single resolution of an enqueued send.
type sendOutcome struct {
	result messaging.SendResult
	err    error
}

type sendJob struct {
	run    func(ctx context.Context) (messaging.SendResult, error)
	result chan sendOutcome // buffered 1, written exactly once
}

// deliveryQueue serializes sends for one session: strict FIFO with at most
// one send in flight. Each send races against the configured timeout; when
// the timeout wins the late transport result is discarded.
type deliveryQueue struct {
	jobs    chan *sendJob
	quit    chan struct{}
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	failErr error
	done    sync.WaitGroup
}

func newDeliveryQueue(size int, timeout time.Duration) *deliveryQueue {
	if size <= 0 {
		size = 100
	}
	q := &deliveryQueue{
		jobs:    make(chan *sendJob, size),
		quit:    make(chan struct{}),
		timeout: timeout,
	}
	q.done.Add(1)
	go q.loop()
	return q
}

// enqueue adds a send to the tail of the queue. It fails fast when the
// queue is full or already torn down.
func (q *deliveryQueue) enqueue(job *sendJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return pkgError.NotFoundError("session not found")
	}

	select {
	case q.jobs <- job:
		return nil
	default:
		return pkgError.InternalServerError("delivery queue is full")
	}
}

func (q *deliveryQueue) loop() {
	defer q.done.Done()
	for {
		select {
		case <-q.quit:
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *deliveryQueue) process(job *sendJob) {
	// The loop's select picks arbitrarily when quit and a queued job are
	// both ready, so a job can be handed here after teardown started.
	// Fail it instead of sending it.
	select {
	case <-q.quit:
		job.result <- sendOutcome{err: q.teardownErr()}
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	finished := make(chan sendOutcome, 1)
	go func() {
		result, err := job.run(ctx)
		finished <- sendOutcome{result: result, err: err}
	}()

	select {
	case out := <-finished:
		job.result <- out
	case <-ctx.Done():
		job.result <- sendOutcome{err: pkgError.TimeoutError(
			fmt.Sprintf("message delivery timed out after %s", q.timeout))}
	}
}

// close tears the queue down. Every send still waiting in the queue is
// failed with the given error; the in-flight send, if any, completes or
// times out on its own.
func (q *deliveryQueue) close(failErr error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.failErr = failErr
	q.mu.Unlock()

	close(q.quit)

	for {
		select {
		case job := <-q.jobs:
			job.result <- sendOutcome{err: failErr}
		default:
			return
		}
	}
}

func (q *deliveryQueue) teardownErr() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failErr != nil {
		return q.failErr
	}
	return pkgError.NotFoundError("session not found")
}
