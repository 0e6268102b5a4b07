package infersrv

import (
	"sync"

	"github.com/cambricon/easydk-go/internal/constants"
)

// priorityQueue is the session's multi-priority input queue:
// ten FIFO lanes keyed on priority 0..9. popHighest always drains the
// highest non-empty lane first, giving higher-priority requests first
// claim at the next dispatch decision without preempting a batch
// already in flight.
type priorityQueue struct {
	mu     sync.Mutex
	lanes  [constants.PriorityLevels][]*Package
	notify chan struct{}
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{notify: make(chan struct{}, 1)}
}

func (q *priorityQueue) push(p *Package) {
	lane := clampPriority(p.Priority)
	q.mu.Lock()
	q.lanes[lane] = append(q.lanes[lane], p)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *priorityQueue) popHighest() (*Package, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for lane := constants.PriorityLevels - 1; lane >= 0; lane-- {
		if len(q.lanes[lane]) == 0 {
			continue
		}
		p := q.lanes[lane][0]
		q.lanes[lane] = q.lanes[lane][1:]
		return p, true
	}
	return nil, false
}

// len reports the total number of queued (not yet batched) packages,
// used by tests and drain bookkeeping.
func (q *priorityQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, lane := range q.lanes {
		n += len(lane)
	}
	return n
}

func clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p >= constants.PriorityLevels {
		return constants.PriorityLevels - 1
	}
	return p
}
