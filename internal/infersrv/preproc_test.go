package infersrv

import (
	"testing"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupHandlersFallsBackToDefaultPreprocessor(t *testing.T) {
	h := lookupHandlers("unregistered-model-key")
	assert.IsType(t, defaultPreprocessor{}, h.Pre)
	assert.Nil(t, h.Post)
}

type stubPreprocessor struct{ called bool }

func (s *stubPreprocessor) OnTensorParams([]model.TensorInfo) error { return nil }
func (s *stubPreprocessor) OnPreproc(src []*bufsurface.Surface, dst *bufsurface.Surface, rects []Rect) error {
	s.called = true
	return nil
}

func TestRegisterAndUnregisterHandlers(t *testing.T) {
	key := "registered-model-key"
	pre := &stubPreprocessor{}
	RegisterHandlers(key, Handlers{Pre: pre})
	defer UnregisterHandlers(key)

	h := lookupHandlers(key)
	assert.Same(t, pre, h.Pre)

	UnregisterHandlers(key)
	h = lookupHandlers(key)
	assert.IsType(t, defaultPreprocessor{}, h.Pre)
}

func TestDefaultPreprocessorCopiesBytes(t *testing.T) {
	src, err := bufsurface.New(bufsurface.CreateParams{
		BatchSize: 1, Width: 4, Height: 1, Format: bufsurface.FormatMonochrome, Alignment: 64, MemType: bufsurface.MemPinnedHost,
	})
	require.NoError(t, err)
	defer src.Unref()
	b, err := src.ImageMirror(0)
	require.NoError(t, err)
	for i := range b {
		b[i] = 7
	}

	dst, err := bufsurface.New(bufsurface.CreateParams{
		BatchSize: 1, Width: 4, Height: 1, Format: bufsurface.FormatMonochrome, Alignment: 64, MemType: bufsurface.MemPinnedHost,
	})
	require.NoError(t, err)
	defer dst.Unref()

	require.NoError(t, (defaultPreprocessor{}).OnPreproc([]*bufsurface.Surface{src}, dst, nil))
	db, err := dst.ImageMirror(0)
	require.NoError(t, err)
	for _, v := range db {
		assert.Equal(t, byte(7), v)
	}
}
