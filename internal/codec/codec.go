// Package codec implements the client-side protocol for the codec
// service: the core never implements decode/encode itself, but this
// package is the contract every decoder/encoder instance — real or
// fake — must satisfy, and the dispatcher that runs it.
package codec

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/logging"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// CodecType names a supported compression standard.
type CodecType int

const (
	CodecH264 CodecType = iota
	CodecH265
	CodecJPEG
)

// Packet is one compressed-bitstream unit handed to a decoder. A
// Packet with a nil Bits slice is the end-of-stream marker.
type Packet struct {
	Bits  []byte
	PTS   int64
	Flags int
}

type state int32

const (
	stateRunning state = iota
	stateEOS
	stateError
)

// DecoderParams are the recognized decoder create options.
type DecoderParams struct {
	DeviceID      int
	CodecType     CodecType
	MaxWidth      int
	MaxHeight     int
	FrameBufNum   int
	ColorFormat   bufsurface.ColorFormat
	SurfTimeoutMs int
	UserData      interface{}

	GetBufSurf func(w, h int, format bufsurface.ColorFormat, timeoutMs int) (*bufsurface.Surface, error)
	OnFrame    func(surf *bufsurface.Surface, userdata interface{})
	OnEos      func(userdata interface{})
	OnError    func(code int, userdata interface{})
}

// Decoder runs the client-visible half of the decode protocol: packets
// go in via SendStream, decoded surfaces and lifecycle events come out
// through the DecoderParams callbacks. Dispatch runs on a single
// goroutine draining an ordered channel, one worker per stream.
type Decoder struct {
	params DecoderParams
	log    *logging.Logger

	packets chan *Packet
	done    chan struct{}

	st atomic.Int32 // state

	outstandingMu sync.Mutex
	outstanding   []*bufsurface.Surface
}

// NewDecoder creates and starts a decoder.
func NewDecoder(params DecoderParams) (*Decoder, error) {
	if params.GetBufSurf == nil || params.OnFrame == nil {
		return nil, easydk.NewDeviceError("codec", "create_decoder", params.DeviceID, easydk.KindInvalidArg,
			"GetBufSurf and OnFrame callbacks are required")
	}
	d := &Decoder{
		params:  params,
		log:     logging.Default().WithComponent("codec").WithDevice(params.DeviceID),
		packets: make(chan *Packet, 32),
		done:    make(chan struct{}),
	}
	go d.dispatch()
	return d, nil
}

func (d *Decoder) dispatch() {
	defer close(d.done)
	for pkt := range d.packets {
		if pkt.Bits == nil {
			if d.params.OnEos != nil {
				d.params.OnEos(d.params.UserData)
			}
			d.setState(stateEOS)
			return
		}
		if err := d.decodeOne(pkt); err != nil {
			d.setState(stateError)
			if d.params.OnError != nil {
				d.params.OnError(int(easydk.StatusOf(err)), d.params.UserData)
			}
			return
		}
	}
}

func (d *Decoder) decodeOne(pkt *Packet) error {
	surf, err := d.params.GetBufSurf(d.params.MaxWidth, d.params.MaxHeight, d.params.ColorFormat, d.params.SurfTimeoutMs)
	if err != nil {
		return easydk.Wrap("codec", "get_buf_surf", err)
	}
	// A real decoder copies/converts the decoded picture into surf here;
	// this client-protocol implementation has no hardware decode path to
	// drive, so it only marks the surface filled and hands it back.
	surf.SetFilledCount(surf.BatchSize())

	d.trackOutstanding(surf)
	d.params.OnFrame(surf, d.params.UserData)
	return nil
}

func (d *Decoder) trackOutstanding(surf *bufsurface.Surface) {
	d.outstandingMu.Lock()
	d.outstanding = append(d.outstanding, surf)
	d.outstandingMu.Unlock()
}

func (d *Decoder) setState(s state) { d.st.Store(int32(s)) }

// SendStream submits one packet. A nil-Bits packet is the EOS marker.
// It fails with Unavailable once the decoder has reached a terminal
// (EOS or error) state.
func (d *Decoder) SendStream(pkt *Packet, timeoutMs int) error {
	if state(d.st.Load()) != stateRunning {
		return easydk.NewDeviceError("codec", "send_stream", d.params.DeviceID, easydk.KindUnavailable, "decoder is not running")
	}
	select {
	case d.packets <- pkt:
		return nil
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		return easydk.NewDeviceError("codec", "send_stream", d.params.DeviceID, easydk.KindTimeout, "send_stream timed out")
	}
}

// pollInterval is how often Release checks for outstanding surfaces to
// drain; it mirrors the pipeline's wait_for_stop periodic re-check
// pattern at a tighter grain appropriate to in-process surfaces rather
// than whole pipeline nodes.
const pollInterval = 10 * time.Millisecond

// Release blocks until the client has released every surface this
// decoder delivered via OnFrame, then stops the dispatcher. Passing
// abort=true returns immediately without waiting, discarding tracking
// of any surfaces still outstanding.
func (d *Decoder) Release(ctx context.Context, abort bool) error {
	close(d.packets)
	<-d.done

	if abort {
		return nil
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if d.allReleased() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// allReleased reports whether every tracked surface's client-side
// reference has been dropped. The decoder takes no reference of its
// own: the client's last Unref returns a pooled surface to its pool
// straight away, and a surface whose RefCount is back to zero is
// removed from tracking here.
func (d *Decoder) allReleased() bool {
	d.outstandingMu.Lock()
	defer d.outstandingMu.Unlock()
	live := d.outstanding[:0]
	for _, s := range d.outstanding {
		if s.RefCount() > 0 {
			live = append(live, s)
		}
	}
	d.outstanding = live
	return len(live) == 0
}
