package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGraph = `
sources:
  - name: cam0
    type: counting
modules:
  - name: sink
    type: collecting
    parallelism: 1
links:
  - from: cam0
    to: sink
`

func TestLoadGraphSpecParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleGraph), 0644))

	spec, err := LoadGraphSpec(path)
	require.NoError(t, err)

	require.Len(t, spec.Sources, 1)
	assert.Equal(t, "cam0", spec.Sources[0].Name)
	require.Len(t, spec.Modules, 1)
	assert.Equal(t, "sink", spec.Modules[0].Name)
	require.Len(t, spec.Links, 1)
	assert.Equal(t, LinkSpec{From: "cam0", To: "sink"}, spec.Links[0])
}

func TestBuildWiresFactoriesAndLinks(t *testing.T) {
	spec := GraphSpec{
		Sources: []NodeSpec{{Name: "cam0", Type: "counting"}},
		Modules: []NodeSpec{{Name: "sink", Type: "collecting", Parallelism: 2}},
		Links:   []LinkSpec{{From: "cam0", To: "sink"}},
	}

	col := &collector{}
	factories := map[string]ModuleFactory{
		"counting":   func(NodeSpec) (Module, error) { return &countingSource{streamID: 1, count: 3}, nil },
		"collecting": func(NodeSpec) (Module, error) { return col, nil },
	}

	g, err := Build(spec, factories)
	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.Len(t, g.nodes, 2)
	assert.Equal(t, g.nodes["sink"], g.nodes["cam0"].next)
}

func TestBuildFailsOnUnknownNodeType(t *testing.T) {
	spec := GraphSpec{Sources: []NodeSpec{{Name: "cam0", Type: "does-not-exist"}}}
	_, err := Build(spec, map[string]ModuleFactory{})
	assert.Error(t, err)
}
