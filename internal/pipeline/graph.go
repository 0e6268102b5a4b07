package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/cambricon/easydk-go/internal/logging"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// Graph is a forest of module chains rooted at source nodes.
// Each node has at most one successor; linking unknown names fails.
type Graph struct {
	mu      sync.Mutex
	nodes   map[string]*node
	order   []string // insertion order, for deterministic Open/Close
	sources []string

	started bool
	stop    chan struct{}
	log     *logging.Logger
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
		log:   logging.Default().WithComponent("pipeline"),
	}
}

// AddSource registers a self-driving module.
func (g *Graph) AddSource(name string, module Module) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.register(name, module, 1, true); err != nil {
		return err
	}
	g.sources = append(g.sources, name)
	return nil
}

// AddModule registers a worker module with `parallelism` input queues.
func (g *Graph) AddModule(name string, module Module, parallelism int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.register(name, module, parallelism, false)
}

func (g *Graph) register(name string, module Module, parallelism int, isSource bool) error {
	if g.started {
		return easydk.NewError("pipeline", "add_node", easydk.KindInvalidArg, "cannot add a node after start")
	}
	if _, exists := g.nodes[name]; exists {
		return easydk.NewError("pipeline", "add_node", easydk.KindInvalidArg, "node "+name+" already exists")
	}
	if module == nil {
		return easydk.NewError("pipeline", "add_node", easydk.KindInvalidArg, "module is required")
	}
	n := newNode(name, module, parallelism)
	n.isSource = isSource
	g.nodes[name] = n
	g.order = append(g.order, name)
	return nil
}

// AddLink sets current.next = next. Each node has at most one
// successor; linking an unknown name fails.
func (g *Graph) AddLink(current, next string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return easydk.NewError("pipeline", "add_link", easydk.KindInvalidArg, "cannot add a link after start")
	}
	cur, ok := g.nodes[current]
	if !ok {
		return easydk.NewError("pipeline", "add_link", easydk.KindInvalidArg, "unknown node "+current)
	}
	nxt, ok := g.nodes[next]
	if !ok {
		return easydk.NewError("pipeline", "add_link", easydk.KindInvalidArg, "unknown node "+next)
	}
	cur.next = nxt
	return nil
}

// Start opens every reachable node, then spawns worker pools for
// non-source nodes and one producer goroutine per source.
func (g *Graph) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started {
		return easydk.NewError("pipeline", "start", easydk.KindInvalidArg, "already started")
	}

	var opened []*node
	for _, name := range g.order {
		n := g.nodes[name]
		if err := n.open(); err != nil {
			for i := len(opened) - 1; i >= 0; i-- {
				_ = opened[i].close()
			}
			return easydk.Wrap("pipeline", "start", err)
		}
		opened = append(opened, n)
	}

	for _, name := range g.order {
		n := g.nodes[name]
		if !n.isSource {
			n.startWorkers()
		}
	}

	g.stop = make(chan struct{})
	for _, name := range g.sources {
		n := g.nodes[name]
		n.wg.Add(1)
		go n.runSource(g.stop)
	}

	g.started = true
	return nil
}

// Stop signals every source's internal producer to wind down (their
// next Process(nil) call is expected to return EOS, or the producer
// loop observes the stop signal directly). EOS then travels naturally
// through the links.
func (g *Graph) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.started || g.stop == nil {
		return
	}
	select {
	case <-g.stop:
	default:
		close(g.stop)
	}
	for _, name := range g.sources {
		_ = g.nodes[name].close()
	}
}

// WaitForStop blocks until every source's running flag is false and,
// for every sink and every stream_id it has ever seen, the per-stream
// map entry is false, re-checking every constants.WaitForStopRecheck.
func (g *Graph) WaitForStop(ctx context.Context) error {
	ticker := time.NewTicker(constants.WaitForStopRecheck)
	defer ticker.Stop()
	for {
		if g.drained() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Graph) drained() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range g.sources {
		if g.nodes[name].isSourceRunning() {
			return false
		}
	}
	for _, name := range g.order {
		n := g.nodes[name]
		if n.isSink() && !n.allStreamsDone() {
			return false
		}
	}
	return true
}

// Shutdown waits for a full drain (if not already drained), then
// closes every node, sources included, and waits for its workers;
// Module.Close runs at most once per node, so a source already closed
// by Stop is not closed again. Go
// goroutines need an explicit signal to exit cleanly, unlike OS
// threads a runtime can simply join.
func (g *Graph) Shutdown(ctx context.Context) error {
	if err := g.WaitForStop(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range g.order {
		n := g.nodes[name]
		_ = n.close()
		n.wg.Wait()
	}
	return nil
}
