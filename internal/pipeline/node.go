package pipeline

import (
	"sync"
	"time"

	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/cambricon/easydk-go/internal/logging"
	"github.com/cambricon/easydk-go/internal/metrics"
)

// node is one graph vertex: either a self-driving source or a worker
// module fed by `parallelism` input queues.
type node struct {
	name        string
	module      Module
	parallelism int
	isSource    bool
	next        *node

	inputs []chan *Frame // len == parallelism for non-source nodes

	liveMu           sync.Mutex
	perStreamRunning map[int]bool
	sourceRunning    bool

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	log *logging.Logger
}

func newNode(name string, module Module, parallelism int) *node {
	if parallelism <= 0 {
		parallelism = 1
	}
	n := &node{
		name:             name,
		module:           module,
		parallelism:      parallelism,
		perStreamRunning: make(map[int]bool),
		stopCh:           make(chan struct{}),
		log:              logging.Default().WithComponent("pipeline").WithOperation(name),
	}
	return n
}

func (n *node) isSink() bool { return n.next == nil }

// trackArrival marks stream id as running the first time it is seen.
func (n *node) trackArrival(streamID int) {
	n.liveMu.Lock()
	n.perStreamRunning[streamID] = true
	n.liveMu.Unlock()
}

// trackEOS clears a stream's running flag.
func (n *node) trackEOS(streamID int) {
	n.liveMu.Lock()
	n.perStreamRunning[streamID] = false
	n.liveMu.Unlock()
}

// allStreamsDone reports whether every stream this node has ever seen
// is no longer running.
func (n *node) allStreamsDone() bool {
	n.liveMu.Lock()
	defer n.liveMu.Unlock()
	for _, running := range n.perStreamRunning {
		if running {
			return false
		}
	}
	return true
}

func (n *node) setSourceRunning(running bool) {
	n.liveMu.Lock()
	n.sourceRunning = running
	n.liveMu.Unlock()
}

func (n *node) isSourceRunning() bool {
	n.liveMu.Lock()
	defer n.liveMu.Unlock()
	return n.sourceRunning
}

// open calls module.Open, idempotently within one start cycle — the
// caller (Graph.Start) only invokes it once per node per cycle.
func (n *node) open() error { return n.module.Open() }

func (n *node) close() error {
	var err error
	n.closeOnce.Do(func() {
		err = n.module.Close()
		close(n.stopCh)
	})
	return err
}

// startWorkers spawns one goroutine per input queue, pinned to that
// queue.
func (n *node) startWorkers() {
	n.inputs = make([]chan *Frame, n.parallelism)
	for i := range n.inputs {
		n.inputs[i] = make(chan *Frame, constants.DefaultNodeQueueDepth)
	}
	for i := range n.inputs {
		n.wg.Add(1)
		go n.runWorker(i)
	}
}

func (n *node) runWorker(i int) {
	defer n.wg.Done()
	ch := n.inputs[i]
	for {
		select {
		case frame, ok := <-ch:
			if !ok {
				return
			}
			n.handleFrame(frame)
		case <-time.After(constants.PipelineWorkerPollWindow):
			select {
			case <-n.stopCh:
				return
			default:
			}
		}
	}
}

func (n *node) handleFrame(frame *Frame) {
	n.trackArrival(frame.StreamID)
	out, err := n.module.Process(frame)
	if err != nil {
		n.log.Warnf("process failed for stream %d: %v", frame.StreamID, err)
	}
	if frame.EOS {
		n.trackEOS(frame.StreamID)
	}
	if out != nil {
		n.transmit(out)
	}
}

// transmit routes frame to n.next, picking queue index stream_id mod
// next.parallelism so all frames of one stream land on the same
// worker.
func (n *node) transmit(frame *Frame) {
	if n.next == nil {
		return
	}
	idx := mod(frame.StreamID, n.next.parallelism)
	select {
	case n.next.inputs[idx] <- frame:
		metrics.ObservePipelineNodeQueueDepth(n.next.name, n.next.queueDepth())
	case <-n.next.stopCh:
	}
}

// queueDepth sums the currently queued frames across every input
// channel, for metrics reporting.
func (n *node) queueDepth() int {
	total := 0
	for _, ch := range n.inputs {
		total += len(ch)
	}
	return total
}

func mod(a, b int) int {
	if b <= 0 {
		return 0
	}
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// runSource loops calling module.Process(nil) until stop is requested,
// transmitting whatever frame it produces.
func (n *node) runSource(stop <-chan struct{}) {
	defer n.wg.Done()
	n.setSourceRunning(true)
	defer n.setSourceRunning(false)

	for {
		select {
		case <-stop:
			return
		default:
		}
		frame, err := n.module.Process(nil)
		if err != nil {
			n.log.Warnf("source process failed: %v", err)
			return
		}
		if frame == nil {
			continue
		}
		if frame.EOS {
			n.trackEOS(frame.StreamID)
		} else {
			n.trackArrival(frame.StreamID)
		}
		n.transmit(frame)
		if frame.EOS {
			return
		}
	}
}
