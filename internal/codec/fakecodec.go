package codec

import (
	"context"
	"sync"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
)

// FakeSource drives a Decoder as if it were fed by a real demuxer: it
// pushes a fixed number of packets then an EOS marker, tracking call
// counts so pipeline/module tests can assert on exact decode counts
// without a real hardware codec.
type FakeSource struct {
	mu          sync.Mutex
	framesSent  int
	eosSent     bool
	framesBuilt int
}

// NewFakeSource creates a fake decoder source backed by pool for
// satisfying GetBufSurf.
func NewFakeSource(pool *bufsurface.Pool, width, height int, format bufsurface.ColorFormat) (*FakeSource, DecoderParams) {
	fs := &FakeSource{}
	params := DecoderParams{
		MaxWidth: width, MaxHeight: height, ColorFormat: format, SurfTimeoutMs: 1000,
		GetBufSurf: func(w, h int, f bufsurface.ColorFormat, timeoutMs int) (*bufsurface.Surface, error) {
			ctx, cancel := withMillisTimeout(timeoutMs)
			defer cancel()
			s, err := pool.Request(ctx)
			if err == nil {
				fs.mu.Lock()
				fs.framesBuilt++
				fs.mu.Unlock()
			}
			return s, err
		},
	}
	return fs, params
}

func withMillisTimeout(ms int) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(ms)*time.Millisecond)
}

// SendN pushes n packets through d, one at a time, then an EOS marker.
func (fs *FakeSource) SendN(d *Decoder, n int) error {
	for i := 0; i < n; i++ {
		if err := d.SendStream(&Packet{Bits: []byte{byte(i)}, PTS: int64(i)}, 1000); err != nil {
			return err
		}
		fs.mu.Lock()
		fs.framesSent++
		fs.mu.Unlock()
	}
	if err := d.SendStream(&Packet{Bits: nil}, 1000); err != nil {
		return err
	}
	fs.mu.Lock()
	fs.eosSent = true
	fs.mu.Unlock()
	return nil
}

// FramesSent reports how many non-EOS packets have been pushed.
func (fs *FakeSource) FramesSent() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.framesSent
}

// FramesBuilt reports how many times GetBufSurf successfully returned
// a surface.
func (fs *FakeSource) FramesBuilt() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.framesBuilt
}
