package decode

import (
	"testing"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/codec"
	"github.com/cambricon/easydk-go/internal/modules/mediaframe"
	"github.com/cambricon/easydk-go/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T, capacity int) *bufsurface.Pool {
	t.Helper()
	p, err := bufsurface.NewPool(bufsurface.CreateParams{
		BatchSize: 1, Width: 16, Height: 16, Format: bufsurface.FormatNV12,
		Alignment: 64, MemType: bufsurface.MemPinnedHost,
	}, capacity)
	require.NoError(t, err)
	return p
}

func TestSourceEmitsFramesInPTSOrderThenEOS(t *testing.T) {
	pool := testPool(t, 4)
	src := New(3, pool, codec.DecoderParams{MaxWidth: 16, MaxHeight: 16, ColorFormat: bufsurface.FormatNV12, SurfTimeoutMs: 1000})
	require.NoError(t, src.Open())
	defer src.Close()

	const n = 5
	go func() {
		for i := 0; i < n; i++ {
			_ = src.Feed(&codec.Packet{Bits: []byte{byte(i)}, PTS: int64(i * 100)}, 1000)
		}
		_ = src.FeedEOS(1000)
	}()

	var pts []int64
	for {
		f, err := src.Process(nil)
		require.NoError(t, err)
		require.Equal(t, 3, f.StreamID)
		if f.EOS {
			break
		}
		mf := f.Payload.(*mediaframe.MediaFrame)
		pts = append(pts, mf.PTS)
		mf.Surface.Unref()
	}

	require.Len(t, pts, n)
	for i, p := range pts {
		require.Equal(t, int64(i*100), p)
	}
}

func TestSourceProcessBlocksUntilFrameReady(t *testing.T) {
	pool := testPool(t, 2)
	src := New(0, pool, codec.DecoderParams{MaxWidth: 16, MaxHeight: 16, ColorFormat: bufsurface.FormatNV12, SurfTimeoutMs: 1000})
	require.NoError(t, src.Open())
	defer src.Close()

	result := make(chan *pipeline.Frame, 1)
	go func() {
		f, _ := src.Process(nil)
		result <- f
	}()

	select {
	case <-result:
		t.Fatal("Process returned before any packet was fed")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, src.Feed(&codec.Packet{Bits: []byte{1}, PTS: 42}, 1000))
	select {
	case f := <-result:
		require.Equal(t, int64(42), f.Payload.(*mediaframe.MediaFrame).PTS)
	case <-time.After(time.Second):
		t.Fatal("Process never returned after a packet was fed")
	}
}

func TestSourceCloseUnblocksPendingProcess(t *testing.T) {
	pool := testPool(t, 2)
	src := New(0, pool, codec.DecoderParams{MaxWidth: 16, MaxHeight: 16, ColorFormat: bufsurface.FormatNV12, SurfTimeoutMs: 1000})
	require.NoError(t, src.Open())

	result := make(chan *pipeline.Frame, 1)
	go func() {
		f, _ := src.Process(nil)
		result <- f
	}()

	require.NoError(t, src.Close())

	select {
	case f := <-result:
		require.Nil(t, f)
	case <-time.After(time.Second):
		t.Fatal("Process did not unblock after Close with no packets ever fed")
	}
}
