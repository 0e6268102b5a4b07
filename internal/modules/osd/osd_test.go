package osd

import (
	"testing"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/infersrv"
	"github.com/cambricon/easydk-go/internal/modules/mediaframe"
	"github.com/cambricon/easydk-go/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	calls int
	boxes []infersrv.Detection
}

func (r *recordingRenderer) Draw(_ *bufsurface.Surface, boxes []infersrv.Detection) error {
	r.calls++
	r.boxes = boxes
	return nil
}

func testSurface(t *testing.T) *bufsurface.Surface {
	t.Helper()
	s, err := bufsurface.New(bufsurface.CreateParams{
		BatchSize: 1, Width: 4, Height: 4, Format: bufsurface.FormatNV12,
		Alignment: 64, MemType: bufsurface.MemPinnedHost,
	})
	require.NoError(t, err)
	return s
}

func TestModuleInvokesRendererWithDetections(t *testing.T) {
	r := &recordingRenderer{}
	m := &Module{Renderer: r}
	require.NoError(t, m.Open())

	boxes := []infersrv.Detection{{ClassID: 1, Score: 0.5}}
	frame := &pipeline.Frame{StreamID: 0, Payload: &mediaframe.MediaFrame{Surface: testSurface(t), Detections: boxes}}

	out, err := m.Process(frame)
	require.NoError(t, err)
	assert.Same(t, frame, out)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, boxes, r.boxes)
}

func TestModuleDefaultsToNoopRenderer(t *testing.T) {
	m := &Module{}
	require.NoError(t, m.Open())
	frame := &pipeline.Frame{StreamID: 0, Payload: &mediaframe.MediaFrame{Surface: testSurface(t)}}
	_, err := m.Process(frame)
	require.NoError(t, err)
}

func TestModuleSkipsEOSFrames(t *testing.T) {
	r := &recordingRenderer{}
	m := &Module{Renderer: r}
	require.NoError(t, m.Open())
	out, err := m.Process(&pipeline.Frame{StreamID: 0, EOS: true})
	require.NoError(t, err)
	assert.True(t, out.EOS)
	assert.Equal(t, 0, r.calls)
}
