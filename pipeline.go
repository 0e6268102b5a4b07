package easydk

import (
	"context"

	"github.com/cambricon/easydk-go/internal/pipeline"
)

// Frame is one unit of data flowing through a pipeline graph, tagged
// with the stream it belongs to and an end-of-stream marker.
type Frame = pipeline.Frame

// Module is the contract every pipeline node implements: Open once at
// Start, Process once per frame routed to this node, Close once per
// node: a source at Stop or Shutdown, every other node at Shutdown.
type Module = pipeline.Module

// GraphSpec is a declarative graph definition (sources, modules,
// links), loadable from YAML via LoadGraphSpec.
type GraphSpec = pipeline.GraphSpec

// NodeSpec names one source or module node in a GraphSpec.
type NodeSpec = pipeline.NodeSpec

// LinkSpec connects two named nodes in a GraphSpec.
type LinkSpec = pipeline.LinkSpec

// ModuleFactory builds a Module for one NodeSpec.
type ModuleFactory = pipeline.ModuleFactory

// LoadGraphSpec reads and parses a YAML graph definition from path.
func LoadGraphSpec(path string) (GraphSpec, error) { return pipeline.LoadGraphSpec(path) }

// BuildGraph constructs a Graph from spec, resolving each node's
// module through factories keyed by NodeSpec.Type.
func BuildGraph(spec GraphSpec, factories map[string]ModuleFactory) (*Graph, error) {
	g, err := pipeline.Build(spec, factories)
	if err != nil {
		return nil, err
	}
	return &Graph{g: g}, nil
}

// Graph is a pipeline of source and processing nodes connected by
// stream-id-routed worker pools.
type Graph struct {
	g *pipeline.Graph
}

// NewGraph creates an empty graph.
func NewGraph() *Graph { return &Graph{g: pipeline.New()} }

// AddSource registers a source node: it drives frames into the graph
// rather than reacting to them.
func (gr *Graph) AddSource(name string, module Module) error { return gr.g.AddSource(name, module) }

// AddModule registers a processing node with the given worker
// parallelism.
func (gr *Graph) AddModule(name string, module Module, parallelism int) error {
	return gr.g.AddModule(name, module, parallelism)
}

// AddLink connects current's output to next's input.
func (gr *Graph) AddLink(current, next string) error { return gr.g.AddLink(current, next) }

// Start opens every node and begins running source and worker
// goroutines.
func (gr *Graph) Start() error { return gr.g.Start() }

// Stop signals every source to stop producing new frames.
func (gr *Graph) Stop() { gr.g.Stop() }

// WaitForStop blocks until every source has finished and every sink
// has seen EOS on each stream it received, or ctx is canceled. It
// closes no node.
func (gr *Graph) WaitForStop(ctx context.Context) error { return gr.g.WaitForStop(ctx) }

// Shutdown waits for the graph to drain, or until ctx is canceled,
// then closes every node. It does not call Stop.
func (gr *Graph) Shutdown(ctx context.Context) error { return gr.g.Shutdown(ctx) }
