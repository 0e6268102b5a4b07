package codec

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T, capacity int) *bufsurface.Pool {
	t.Helper()
	pool, err := bufsurface.NewPool(bufsurface.CreateParams{
		BatchSize: 1, Width: 32, Height: 32, Format: bufsurface.FormatNV12, Alignment: 64, MemType: bufsurface.MemPinnedHost,
	}, capacity)
	require.NoError(t, err)
	return pool
}

func TestDecoderDeliversFramesThenEos(t *testing.T) {
	pool := testPool(t, 4)

	var mu sync.Mutex
	var frames int
	eos := make(chan struct{})

	d, err := NewDecoder(DecoderParams{
		MaxWidth: 32, MaxHeight: 32, ColorFormat: bufsurface.FormatNV12, SurfTimeoutMs: 1000,
		GetBufSurf: func(w, h int, format bufsurface.ColorFormat, timeoutMs int) (*bufsurface.Surface, error) {
			return pool.Request(context.Background())
		},
		OnFrame: func(surf *bufsurface.Surface, userdata interface{}) {
			mu.Lock()
			frames++
			mu.Unlock()
			surf.Unref()
		},
		OnEos: func(userdata interface{}) { close(eos) },
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, d.SendStream(&Packet{Bits: []byte{1, 2, 3}, PTS: int64(i)}, 1000))
	}
	require.NoError(t, d.SendStream(&Packet{Bits: nil}, 1000))

	select {
	case <-eos:
	case <-time.After(time.Second):
		t.Fatal("OnEos never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, frames)
}

func TestDecoderReleaseWaitsForOutstandingSurfaces(t *testing.T) {
	pool := testPool(t, 1)

	var held *bufsurface.Surface
	d, err := NewDecoder(DecoderParams{
		MaxWidth: 32, MaxHeight: 32, ColorFormat: bufsurface.FormatNV12, SurfTimeoutMs: 1000,
		GetBufSurf: func(w, h int, format bufsurface.ColorFormat, timeoutMs int) (*bufsurface.Surface, error) {
			return pool.Request(context.Background())
		},
		OnFrame: func(surf *bufsurface.Surface, userdata interface{}) { held = surf },
		OnEos:   func(userdata interface{}) {},
	})
	require.NoError(t, err)

	require.NoError(t, d.SendStream(&Packet{Bits: []byte{1}}, 1000))
	require.NoError(t, d.SendStream(&Packet{Bits: nil}, 1000))

	released := make(chan error, 1)
	go func() { released <- d.Release(context.Background(), false) }()

	select {
	case <-released:
		t.Fatal("Release returned before the client released its surface")
	case <-time.After(30 * time.Millisecond):
	}

	held.Unref()
	select {
	case err := <-released:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Release never returned after client unref")
	}
}

func TestDecoderReleaseAbortDoesNotWait(t *testing.T) {
	pool := testPool(t, 1)
	d, err := NewDecoder(DecoderParams{
		GetBufSurf: func(w, h int, format bufsurface.ColorFormat, timeoutMs int) (*bufsurface.Surface, error) {
			return pool.Request(context.Background())
		},
		OnFrame: func(surf *bufsurface.Surface, userdata interface{}) {},
	})
	require.NoError(t, err)
	require.NoError(t, d.SendStream(&Packet{Bits: []byte{1}}, 1000))
	require.NoError(t, d.SendStream(&Packet{Bits: nil}, 1000))

	done := make(chan error, 1)
	go func() { done <- d.Release(context.Background(), true) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Release(abort=true) should return immediately")
	}
}

func TestEncoderSendFrameAndEos(t *testing.T) {
	s, err := bufsurface.New(bufsurface.CreateParams{
		BatchSize: 1, Width: 32, Height: 32, Format: bufsurface.FormatNV12, Alignment: 64, MemType: bufsurface.MemPinnedHost,
	})
	require.NoError(t, err)
	defer s.Unref()

	var packets int
	eos := false
	e, err := NewEncoder(EncoderParams{
		OnPacket: func(streamBytes []byte, pts int64, userdata interface{}) {
			packets++
			assert.Equal(t, s.PerImageSize(), len(streamBytes))
		},
		OnEos: func(userdata interface{}) { eos = true },
	})
	require.NoError(t, err)

	require.NoError(t, e.SendFrame(s, 0))
	require.NoError(t, e.SendFrame(s, 1))
	require.NoError(t, e.SendEos())

	assert.Equal(t, 2, packets)
	assert.True(t, eos)
	assert.Error(t, e.SendFrame(s, 2), "encoder must reject frames after eos")
}
