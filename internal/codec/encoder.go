package codec

import (
	"sync/atomic"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/logging"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// EncoderParams are the recognized encoder create options. The
// encoder protocol mirrors the decoder's: frames go in via SendFrame,
// compressed packets and lifecycle events come out through callbacks.
type EncoderParams struct {
	DeviceID  int
	CodecType CodecType
	UserData  interface{}

	// OnPacket delivers stream_bytes on the caller's goroutine, inside
	// the call that triggered it; the callee must consume or copy the
	// bytes before returning, since the backing buffer may be reused
	// afterward.
	OnPacket func(streamBytes []byte, pts int64, userdata interface{})
	OnEos    func(userdata interface{})
}

// Encoder runs the client-visible half of the encode protocol.
type Encoder struct {
	params EncoderParams
	log    *logging.Logger
	st     atomic.Int32
}

// NewEncoder creates an encoder.
func NewEncoder(params EncoderParams) (*Encoder, error) {
	if params.OnPacket == nil {
		return nil, easydk.NewDeviceError("codec", "create_encoder", params.DeviceID, easydk.KindInvalidArg,
			"OnPacket callback is required")
	}
	return &Encoder{params: params, log: logging.Default().WithComponent("codec").WithDevice(params.DeviceID)}, nil
}

// SendFrame submits one surface for encoding, synchronously invoking
// OnPacket on the calling goroutine once the (simulated) compressed
// packet is produced.
func (e *Encoder) SendFrame(surf *bufsurface.Surface, pts int64) error {
	if state(e.st.Load()) != stateRunning {
		return easydk.NewDeviceError("codec", "send_frame", e.params.DeviceID, easydk.KindUnavailable, "encoder is not running")
	}
	// A real encoder compresses surf's planes here; this client-protocol
	// implementation has no hardware encode path, so it emits a
	// placeholder payload sized to the surface so callers can exercise
	// the full send/callback/pts contract end to end.
	payload := make([]byte, surf.PerImageSize())
	e.params.OnPacket(payload, pts, e.params.UserData)
	return nil
}

// SendEos marks the end of the stream, invoking OnEos exactly once.
func (e *Encoder) SendEos() error {
	if !e.st.CompareAndSwap(int32(stateRunning), int32(stateEOS)) {
		return nil
	}
	if e.params.OnEos != nil {
		e.params.OnEos(e.params.UserData)
	}
	return nil
}
