// Package modules_test wires decode, inferadapter, osd and encode into
// a single graph end to end: decode a short stream through an identity
// model and encode it back out.
package modules_test

import (
	"context"
	"testing"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/codec"
	"github.com/cambricon/easydk-go/internal/devmem"
	"github.com/cambricon/easydk-go/internal/infersrv"
	"github.com/cambricon/easydk-go/internal/model"
	"github.com/cambricon/easydk-go/internal/modules/decode"
	"github.com/cambricon/easydk-go/internal/modules/encode"
	"github.com/cambricon/easydk-go/internal/modules/inferadapter"
	"github.com/cambricon/easydk-go/internal/modules/osd"
	"github.com/cambricon/easydk-go/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	devmem.ConfigureSimulatedDevices(1)
	m.Run()
}

type identityBackend struct{}

func (identityBackend) Forward(inputs, outputs []*bufsurface.Surface) error {
	in, out := inputs[0], outputs[0]
	for i := 0; i < in.BatchSize() && i < out.BatchSize(); i++ {
		sb, err := in.ImageMirror(i)
		if err != nil {
			return err
		}
		db, err := out.ImageMirror(i)
		if err != nil {
			return err
		}
		n := len(sb)
		if len(db) < n {
			n = len(db)
		}
		copy(db[:n], sb[:n])
	}
	return nil
}

func TestDecodeInferOSDEncodePipelineS1(t *testing.T) {
	const frameCount = 10
	const streamID = 0

	decPool, err := bufsurface.NewPool(bufsurface.CreateParams{
		BatchSize: 1, Width: 1920, Height: 1080, Format: bufsurface.FormatNV12,
		Alignment: 64, MemType: bufsurface.MemPinnedHost,
	}, frameCount+2)
	require.NoError(t, err)

	modelInfo := &model.Info{
		Key:     "s1-identity",
		Inputs:  []model.TensorInfo{{Shape: []int{8}, DType: model.DTypeU8}},
		Outputs: []model.TensorInfo{{Shape: []int{8}, DType: model.DTypeU8}},
	}
	sess, err := infersrv.CreateSession(infersrv.Descriptor{
		ModelInfo: modelInfo, Backend: identityBackend{}, EngineNum: 2,
		BatchPolicy: infersrv.PolicyDynamic, BatchDim: 4, BatchTimeout: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	defer sess.Destroy(context.Background())

	src := decode.New(streamID, decPool, codec.DecoderParams{
		MaxWidth: 1920, MaxHeight: 1080, ColorFormat: bufsurface.FormatNV12, SurfTimeoutMs: 1000,
	})

	infer := &inferadapter.Module{Session: sess, Tag: "s1", Timeout: time.Second}
	overlay := &osd.Module{}

	var packets []encode.Packet
	sink := &encode.Sink{
		StreamID:  streamID,
		CodecType: codec.CodecH264,
		OnPacket:  func(p encode.Packet) { packets = append(packets, p) },
	}

	g := pipeline.New()
	require.NoError(t, g.AddSource("decode", src))
	require.NoError(t, g.AddModule("infer", infer, 1))
	require.NoError(t, g.AddModule("osd", overlay, 1))
	require.NoError(t, g.AddModule("encode", sink, 1))
	require.NoError(t, g.AddLink("decode", "infer"))
	require.NoError(t, g.AddLink("infer", "osd"))
	require.NoError(t, g.AddLink("osd", "encode"))

	require.NoError(t, g.Start())

	go func() {
		for i := 0; i < frameCount; i++ {
			_ = src.Feed(&codec.Packet{Bits: []byte{byte(i)}, PTS: int64(i * 33)}, 1000)
		}
		_ = src.FeedEOS(1000)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, g.Shutdown(ctx))

	require.Len(t, packets, frameCount)
	for i, p := range packets {
		assert.Equal(t, int64(i*33), p.PTS)
	}
}
