// Package taskqueue implements the task queue abstraction every other
// core component submits device work through: a per-device FIFO
// execution stream with a bounded table of timing marks.
package taskqueue

import (
	"context"
	"sync"
	"time"

	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/cambricon/easydk-go/internal/logging"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// Queue is a serial execution stream bound to one device. Every task
// submitted to it runs in submission order on a single dedicated
// goroutine, mirroring the in-order execution guarantee a hardware
// command queue gives callers.
type Queue struct {
	deviceID int
	log      *logging.Logger

	work chan func()

	mu        sync.Mutex
	marksTime []time.Time
	marksFree []bool
	closed    bool
	drained   chan struct{}
}

// New creates and starts a task queue bound to deviceID.
func New(deviceID int) *Queue {
	q := &Queue{
		deviceID: deviceID,
		log:      logging.Default().WithComponent("taskqueue").WithDevice(deviceID),
		work:     make(chan func(), 64),
		drained:  make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *Queue) loop() {
	for fn := range q.work {
		fn()
	}
	close(q.drained)
}

// Submit enqueues fn to run on the queue's worker goroutine. It returns
// Unavailable if the queue has been destroyed.
func (q *Queue) Submit(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return easydk.NewDeviceError("taskqueue", "submit", q.deviceID, easydk.KindUnavailable, "queue destroyed")
	}
	q.work <- fn
	return nil
}

// Sync blocks until every task submitted before this call has run. It
// does so by submitting a barrier task and waiting for it, which is
// correct because the queue executes strictly in submission order.
func (q *Queue) Sync(ctx context.Context) error {
	done := make(chan struct{})
	if err := q.Submit(func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mark is a timing checkpoint placed on a queue's execution stream.
// Elapsed computes the time between two marks once both have run.
type Mark struct {
	id int
	q  *Queue
}

// PlaceMark reserves a slot in the mark table and submits a task that
// records the wall-clock time the queue reaches this point. The table
// holds at most constants.MaxMarksPerQueue live (un-released) marks at
// once, reusing the first freed slot before growing, exactly as the
// original mark table does.
func (q *Queue) PlaceMark() (*Mark, error) {
	q.mu.Lock()
	idx := -1
	for i, free := range q.marksFree {
		if free {
			idx = i
			break
		}
	}
	if idx == -1 {
		if len(q.marksFree) >= constants.MaxMarksPerQueue {
			q.mu.Unlock()
			return nil, easydk.NewDeviceError("taskqueue", "place_mark", q.deviceID, easydk.KindUnavailable,
				"mark table exhausted, release outstanding marks before placing more")
		}
		idx = len(q.marksFree)
		q.marksFree = append(q.marksFree, false)
		q.marksTime = append(q.marksTime, time.Time{})
	} else {
		q.marksFree[idx] = false
	}
	q.mu.Unlock()

	if err := q.Submit(func() {
		q.mu.Lock()
		q.marksTime[idx] = time.Now()
		q.mu.Unlock()
	}); err != nil {
		q.mu.Lock()
		q.marksFree[idx] = true
		q.mu.Unlock()
		return nil, err
	}

	return &Mark{id: idx, q: q}, nil
}

// Release frees the mark's slot for reuse. A released mark must not be
// passed to Elapsed again.
func (m *Mark) Release() {
	m.q.mu.Lock()
	m.q.marksFree[m.id] = true
	m.q.mu.Unlock()
}

// Elapsed returns the time between start and end, which must both have
// already run on the queue (callers typically Sync first). It returns
// an InvalidArg error if either mark has already been released.
func (q *Queue) Elapsed(start, end *Mark) (time.Duration, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.marksFree[start.id] || q.marksFree[end.id] {
		return 0, easydk.NewDeviceError("taskqueue", "elapsed", q.deviceID, easydk.KindInvalidArg,
			"mark has been released")
	}
	return q.marksTime[end.id].Sub(q.marksTime[start.id]), nil
}

// Destroy stops accepting new work and waits for already-submitted
// tasks to drain before returning.
func (q *Queue) Destroy(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.work)
	q.mu.Unlock()

	select {
	case <-q.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
