package easydk

import "github.com/cambricon/easydk-go/internal/codec"

// CodecType names a supported compression standard.
type CodecType = codec.CodecType

const (
	CodecH264 = codec.CodecH264
	CodecH265 = codec.CodecH265
	CodecJPEG = codec.CodecJPEG
)

// CodecPacket is one compressed-bitstream unit; a nil Bits slice is
// the end-of-stream marker on a decoder's SendStream.
type CodecPacket = codec.Packet

// DecoderParams are the recognized decoder create options.
type DecoderParams = codec.DecoderParams

// Decoder runs the client-visible half of the decode protocol: packets
// go in via SendStream, decoded surfaces and lifecycle events come out
// through the DecoderParams callbacks.
type Decoder = codec.Decoder

// NewDecoder creates a decoder.
func NewDecoder(params DecoderParams) (*Decoder, error) { return codec.NewDecoder(params) }

// EncoderParams are the recognized encoder create options.
type EncoderParams = codec.EncoderParams

// Encoder runs the client-visible half of the encode protocol: frames
// go in via SendFrame, compressed packets come out through callbacks.
type Encoder = codec.Encoder

// NewEncoder creates an encoder.
func NewEncoder(params EncoderParams) (*Encoder, error) { return codec.NewEncoder(params) }
