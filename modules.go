package easydk

import (
	"github.com/cambricon/easydk-go/internal/modules/decode"
	"github.com/cambricon/easydk-go/internal/modules/encode"
	"github.com/cambricon/easydk-go/internal/modules/inferadapter"
	"github.com/cambricon/easydk-go/internal/modules/mediaframe"
	"github.com/cambricon/easydk-go/internal/modules/osd"
)

// MediaFrame is the payload every surrounding module (decode, infer
// adapter, OSD, encode) carries inside a Frame.
type MediaFrame = mediaframe.MediaFrame

// DecodeSource is a pipeline source module that turns compressed
// packets fed through Feed/FeedEOS into decoded-picture Frames.
type DecodeSource = decode.Source

// NewDecodeSource creates a decode source bound to pool for frame
// buffer allocation.
func NewDecodeSource(streamID int, pool *SurfacePool, params DecoderParams) *DecodeSource {
	return decode.New(streamID, pool, params)
}

// InferModule submits every non-EOS frame to a synchronous inference
// session and waits for the result before passing the frame on.
type InferModule = inferadapter.Module

// OSDRenderer draws detection boxes onto a surface.
type OSDRenderer = osd.Renderer

// OSDModule overlays each frame's detections onto its surface in place.
type OSDModule = osd.Module

// EncodedPacket is one encoded output unit delivered by an EncodeSink.
type EncodedPacket = encode.Packet

// EncodeSink is the pipeline's terminal module: it feeds each frame's
// surface to an encoder and forwards compressed packets to the caller.
type EncodeSink = encode.Sink
