package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiwa/multiwa/messaging"
	pkgError "github.com/multiwa/multiwa/pkg/error"
)

func enqueueSend(t *testing.T, q *deliveryQueue, run func(ctx context.Context) (messaging.SendResult, error)) *sendJob {
	t.Helper()
	job := &sendJob{run: run, result: make(chan sendOutcome, 1)}
	require.NoError(t, q.enqueue(job))
	return job
}

func TestDeliveryQueue_FIFOOrder(t *testing.T) {
	q := newDeliveryQueue(10, time.Second)
	defer q.close(pkgError.NotFoundError("session not found"))

	var order []int
	jobs := make([]*sendJob, 0, 3)
	for i := 0; i < 3; i++ {
		i := i
		jobs = append(jobs, enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
			order = append(order, i)
			return messaging.SendResult{MessageID: fmt.Sprintf("msg-%d", i)}, nil
		}))
	}

	for i, job := range jobs {
		out := <-job.result
		require.NoError(t, out.err)
		assert.Equal(t, fmt.Sprintf("msg-%d", i), out.result.MessageID)
	}
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestDeliveryQueue_Timeout(t *testing.T) {
	q := newDeliveryQueue(10, 30*time.Millisecond)
	defer q.close(pkgError.NotFoundError("session not found"))

	job := enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
		<-ctx.Done()
		return messaging.SendResult{}, ctx.Err()
	})

	out := <-job.result
	require.Error(t, out.err)
	generic, ok := out.err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "TIMEOUT_ERROR", generic.ErrCode())
}

func TestDeliveryQueue_SingleInFlight(t *testing.T) {
	q := newDeliveryQueue(10, time.Second)
	defer q.close(pkgError.NotFoundError("session not found"))

	release := make(chan struct{})
	first := enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
		<-release
		return messaging.SendResult{MessageID: "first"}, nil
	})

	started := make(chan struct{})
	second := enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
		close(started)
		return messaging.SendResult{MessageID: "second"}, nil
	})

	select {
	case <-started:
		t.Fatal("second send started while first still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	out := <-first.result
	require.NoError(t, out.err)
	out = <-second.result
	require.NoError(t, out.err)
}

func TestDeliveryQueue_CloseFailsQueued(t *testing.T) {
	q := newDeliveryQueue(10, time.Second)

	release := make(chan struct{})
	inflight := enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
		<-release
		return messaging.SendResult{MessageID: "inflight"}, nil
	})

	// Give the loop time to pick up the in-flight job before queueing more.
	time.Sleep(20 * time.Millisecond)

	queued := enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
		return messaging.SendResult{}, nil
	})

	q.close(pkgError.NotFoundError("session not found"))
	close(release)

	out := <-queued.result
	require.Error(t, out.err)
	generic, ok := out.err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND_ERROR", generic.ErrCode())

	out = <-inflight.result
	require.NoError(t, out.err)
	assert.Equal(t, "inflight", out.result.MessageID)
}

func TestDeliveryQueue_TeardownWinsPickupRace(t *testing.T) {
	q := newDeliveryQueue(10, time.Second)
	q.close(pkgError.NotFoundError("session not found"))

	// Simulate the loop having picked a job in the same select round that
	// saw quit close: process must fail the job, not run it.
	ran := false
	job := &sendJob{
		run: func(ctx context.Context) (messaging.SendResult, error) {
			ran = true
			return messaging.SendResult{MessageID: "late"}, nil
		},
		result: make(chan sendOutcome, 1),
	}
	q.process(job)

	out := <-job.result
	require.Error(t, out.err)
	generic, ok := out.err.(pkgError.GenericError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND_ERROR", generic.ErrCode())
	assert.False(t, ran, "send must not run after teardown")
}

func TestDeliveryQueue_EnqueueAfterClose(t *testing.T) {
	q := newDeliveryQueue(10, time.Second)
	q.close(pkgError.NotFoundError("session not found"))

	job := &sendJob{
		run:    func(ctx context.Context) (messaging.SendResult, error) { return messaging.SendResult{}, nil },
		result: make(chan sendOutcome, 1),
	}
	err := q.enqueue(job)
	require.Error(t, err)
}

func TestDeliveryQueue_Full(t *testing.T) {
	q := newDeliveryQueue(1, time.Second)
	defer q.close(pkgError.NotFoundError("session not found"))

	release := make(chan struct{})
	defer close(release)
	enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
		<-release
		return messaging.SendResult{}, nil
	})

	// Wait until the worker holds the first job so the buffer is free again.
	time.Sleep(20 * time.Millisecond)
	enqueueSend(t, q, func(ctx context.Context) (messaging.SendResult, error) {
		return messaging.SendResult{}, nil
	})

	job := &sendJob{
		run:    func(ctx context.Context) (messaging.SendResult, error) { return messaging.SendResult{}, nil },
		result: make(chan sendOutcome, 1),
	}
	err := q.enqueue(job)
	require.Error(t, err)
}
