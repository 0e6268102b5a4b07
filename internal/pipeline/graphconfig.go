package pipeline

import (
	"os"

	"gopkg.in/yaml.v3"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// GraphSpec is the on-disk description of a graph's topology: which
// named nodes exist and how they link, read from a YAML file the way
// inference-sim's cmd package reads its workload presets. It carries
// no module instances — only names, parallelism, and link targets —
// because constructing a decode/inferadapter/osd/encode module needs
// runtime collaborators (a codec decoder, an infersrv.Session, a
// device binding) that a topology file cannot express on its own.
type GraphSpec struct {
	Sources []NodeSpec `yaml:"sources"`
	Modules []NodeSpec `yaml:"modules"`
	Links   []LinkSpec `yaml:"links"`
}

// NodeSpec names one node and, for non-source nodes, its worker count.
type NodeSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Parallelism int    `yaml:"parallelism"`
}

// LinkSpec connects one node's output to another's input.
type LinkSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadGraphSpec reads and parses a GraphSpec from path.
func LoadGraphSpec(path string) (GraphSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GraphSpec{}, err
	}
	var spec GraphSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return GraphSpec{}, err
	}
	return spec, nil
}

// ModuleFactory builds the Module for one NodeSpec. Callers supply one
// keyed by NodeSpec.Type (e.g. "decode", "inferadapter", "osd",
// "encode") so Build can stay ignorant of any concrete module package.
type ModuleFactory func(spec NodeSpec) (Module, error)

// Build constructs a Graph from spec, looking up each node's
// constructor in factories by its Type and wiring every link in spec.Links.
// It does not call Start; the caller decides when the graph runs.
func Build(spec GraphSpec, factories map[string]ModuleFactory) (*Graph, error) {
	g := New()

	for _, ns := range spec.Sources {
		mod, err := buildNode(ns, factories)
		if err != nil {
			return nil, err
		}
		if err := g.AddSource(ns.Name, mod); err != nil {
			return nil, err
		}
	}
	for _, ns := range spec.Modules {
		mod, err := buildNode(ns, factories)
		if err != nil {
			return nil, err
		}
		parallelism := ns.Parallelism
		if parallelism <= 0 {
			parallelism = 1
		}
		if err := g.AddModule(ns.Name, mod, parallelism); err != nil {
			return nil, err
		}
	}
	for _, link := range spec.Links {
		if err := g.AddLink(link.From, link.To); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func buildNode(ns NodeSpec, factories map[string]ModuleFactory) (Module, error) {
	factory, ok := factories[ns.Type]
	if !ok {
		return nil, easydk.NewError("pipeline", "build", easydk.KindInvalidArg, "no factory registered for node type "+ns.Type)
	}
	return factory(ns)
}
