// Package decode adapts the codec service's decoder protocol into a
// pipeline source module: it owns a Decoder, feeds it
// compressed packets pulled from an external demuxer via Feed, and
// turns each decoded picture into a pipeline.Frame carrying a
// mediaframe.MediaFrame.
package decode

import (
	"context"
	"sync"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/codec"
	"github.com/cambricon/easydk-go/internal/logging"
	"github.com/cambricon/easydk-go/internal/modules/mediaframe"
	"github.com/cambricon/easydk-go/internal/pipeline"
)

// Source is a pipeline source module: its Process method is driven by
// the pipeline's own source goroutine, not by an upstream node. A
// caller feeds compressed packets through Feed/FeedEOS from whatever
// demuxer it uses; Source turns the resulting decoded surfaces into
// frames.
type Source struct {
	StreamID int
	Pool     *bufsurface.Pool
	Params   codec.DecoderParams

	dec *codec.Decoder
	log *logging.Logger

	mu      sync.Mutex
	ptsQ    []int64
	pending chan *pipeline.Frame
	stopped chan struct{}
}

// New creates a decode source bound to pool for frame buffer
// allocation. Params.GetBufSurf/OnFrame/OnEos/OnError are overwritten;
// the rest (codec type, dimensions, color format) are honored as given.
func New(streamID int, pool *bufsurface.Pool, params codec.DecoderParams) *Source {
	return &Source{
		StreamID: streamID,
		Pool:     pool,
		Params:   params,
		log:      logging.Default().WithComponent("modules.decode"),
		pending:  make(chan *pipeline.Frame, 32),
		stopped:  make(chan struct{}),
	}
}

func (s *Source) Open() error {
	s.Params.GetBufSurf = func(w, h int, f bufsurface.ColorFormat, timeoutMs int) (*bufsurface.Surface, error) {
		ctx, cancel := codecTimeout(timeoutMs)
		defer cancel()
		return s.Pool.Request(ctx)
	}
	s.Params.OnFrame = func(surf *bufsurface.Surface, _ interface{}) {
		pts := s.popPTS()
		s.pending <- &pipeline.Frame{
			StreamID: s.StreamID,
			Payload:  &mediaframe.MediaFrame{Surface: surf, PTS: pts},
		}
	}
	s.Params.OnEos = func(_ interface{}) {
		s.pending <- &pipeline.Frame{StreamID: s.StreamID, EOS: true}
	}
	s.Params.OnError = func(code int, _ interface{}) {
		s.log.Warnf("decode error, status %d", code)
		s.pending <- &pipeline.Frame{StreamID: s.StreamID, EOS: true}
	}

	dec, err := codec.NewDecoder(s.Params)
	if err != nil {
		return err
	}
	s.dec = dec
	return nil
}

// Feed hands one compressed packet to the decoder, tracking its PTS so
// the matching OnFrame callback can attach it to the decoded surface;
// dispatch is single-goroutine FIFO so packets and frames pair up
// one-to-one in submission order.
func (s *Source) Feed(pkt *codec.Packet, timeoutMs int) error {
	s.pushPTS(pkt.PTS)
	return s.dec.SendStream(pkt, timeoutMs)
}

// FeedEOS submits the end-of-stream marker.
func (s *Source) FeedEOS(timeoutMs int) error {
	return s.dec.SendStream(&codec.Packet{Bits: nil}, timeoutMs)
}

func (s *Source) pushPTS(pts int64) {
	s.mu.Lock()
	s.ptsQ = append(s.ptsQ, pts)
	s.mu.Unlock()
}

func (s *Source) popPTS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ptsQ) == 0 {
		return 0
	}
	pts := s.ptsQ[0]
	s.ptsQ = s.ptsQ[1:]
	return pts
}

// Process is invoked repeatedly by the pipeline's source goroutine; it
// never sees a non-nil frame argument. It also watches the
// close signal so a Close racing with an idle decoder (no more
// packets ever coming) does not block this goroutine forever; the
// caller's own stop check on its next loop iteration is what actually
// ends production.
func (s *Source) Process(_ *pipeline.Frame) (*pipeline.Frame, error) {
	select {
	case frame := <-s.pending:
		return frame, nil
	case <-s.stopped:
		return nil, nil
	}
}

// Close releases the decoder and unblocks any Process call waiting on
// a packet that will never arrive. The pipeline node's own close
// guard (sync.Once) makes sure this runs exactly once per graph
// lifecycle.
func (s *Source) Close() error {
	close(s.stopped)
	if s.dec == nil {
		return nil
	}
	return s.dec.Release(context.Background(), true)
}

func codecTimeout(ms int) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(ms)*time.Millisecond)
}
