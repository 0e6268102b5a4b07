// Package encode is the pipeline sink module wrapping the codec
// service's encoder protocol: it feeds each frame's
// surface to an Encoder and forwards compressed packets to whatever
// muxer the caller supplies.
package encode

import (
	"github.com/cambricon/easydk-go/internal/codec"
	"github.com/cambricon/easydk-go/internal/logging"
	"github.com/cambricon/easydk-go/internal/modules/mediaframe"
	"github.com/cambricon/easydk-go/internal/pipeline"
)

// Packet is one encoded output unit delivered to OnPacket.
type Packet struct {
	StreamID int
	Bytes    []byte
	PTS      int64
}

// Sink is the pipeline's terminal module: it has no successor, so its
// Process always returns (nil, err) and instead hands finished work to
// OnPacket/OnEOS directly.
type Sink struct {
	StreamID  int
	CodecType codec.CodecType
	DeviceID  int

	// OnPacket and OnEOS deliver encoded output; the caller is
	// responsible for muxing it to a container or socket.
	OnPacket func(Packet)
	OnEOS    func(streamID int)

	enc *codec.Encoder
	log *logging.Logger
}

func (s *Sink) Open() error {
	s.log = logging.Default().WithComponent("modules.encode")
	enc, err := codec.NewEncoder(codec.EncoderParams{
		DeviceID:  s.DeviceID,
		CodecType: s.CodecType,
		OnPacket: func(streamBytes []byte, pts int64, _ interface{}) {
			if s.OnPacket == nil {
				return
			}
			out := make([]byte, len(streamBytes))
			copy(out, streamBytes)
			s.OnPacket(Packet{StreamID: s.StreamID, Bytes: out, PTS: pts})
		},
		OnEos: func(_ interface{}) {
			if s.OnEOS != nil {
				s.OnEOS(s.StreamID)
			}
		},
	})
	if err != nil {
		return err
	}
	s.enc = enc
	return nil
}

func (s *Sink) Process(f *pipeline.Frame) (*pipeline.Frame, error) {
	if f.EOS {
		return nil, s.enc.SendEos()
	}
	mf, ok := f.Payload.(*mediaframe.MediaFrame)
	if !ok || mf.Surface == nil {
		return nil, nil
	}
	if err := s.enc.SendFrame(mf.Surface, mf.PTS); err != nil {
		return nil, err
	}
	mf.Surface.Unref()
	return nil, nil
}

func (s *Sink) Close() error { return nil }
