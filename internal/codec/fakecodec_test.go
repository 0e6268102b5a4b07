package codec

import (
	"testing"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSourceDrivesDecoderToEos(t *testing.T) {
	pool := testPool(t, 4)
	fs, params := NewFakeSource(pool, 32, 32, bufsurface.FormatNV12)

	var frames int
	eos := make(chan struct{})
	params.OnFrame = func(surf *bufsurface.Surface, userdata interface{}) {
		frames++
		surf.Unref()
	}
	params.OnEos = func(userdata interface{}) { close(eos) }

	d, err := NewDecoder(params)
	require.NoError(t, err)

	require.NoError(t, fs.SendN(d, 5))

	select {
	case <-eos:
	case <-time.After(time.Second):
		t.Fatal("OnEos never fired")
	}

	assert.Equal(t, 5, fs.FramesSent())
	assert.Equal(t, 5, fs.FramesBuilt())
	assert.Equal(t, 5, frames)
}
