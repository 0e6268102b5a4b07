package infersrv

import (
	"context"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/cambricon/easydk-go/internal/model"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// modelIO owns the staging device buffers a session's engine pool runs
// forward passes against. Buffer Surface is this module's only device
// buffer abstraction, so a tensor is modelled as a single-plane
// monochrome surface whose width is the tensor's flattened byte size —
// a deliberate simplification recorded in the design ledger.
type modelIO struct {
	inputs  []*bufsurface.Pool
	outputs []*bufsurface.Pool
}

func dtypeSize(d model.DType) int {
	switch d {
	case model.DTypeU8:
		return 1
	case model.DTypeI16, model.DTypeF16:
		return 2
	default: // DTypeI32, DTypeF32
		return 4
	}
}

func tensorByteSize(t model.TensorInfo) int {
	n := 1
	for _, d := range t.Shape {
		if d > 0 {
			n *= d
		}
	}
	if n == 0 {
		n = 1
	}
	return n * dtypeSize(t.DType)
}

// newModelIO allocates one surface pool per input/output tensor, each
// surface batched to hold batchDim items, with staging surfaces per
// pool so engineNum concurrent executors never block on each other's
// staging buffer.
func newModelIO(deviceID int, info *model.Info, batchDim, staging int) (*modelIO, error) {
	if staging <= 0 {
		staging = 1
	}
	mio := &modelIO{}
	for _, t := range info.Inputs {
		pool, err := bufsurface.NewPool(tensorPoolParams(deviceID, t, batchDim), staging)
		if err != nil {
			return nil, easydk.Wrap("infersrv", "create_session", err)
		}
		mio.inputs = append(mio.inputs, pool)
	}
	for _, t := range info.Outputs {
		pool, err := bufsurface.NewPool(tensorPoolParams(deviceID, t, batchDim), staging)
		if err != nil {
			return nil, easydk.Wrap("infersrv", "create_session", err)
		}
		mio.outputs = append(mio.outputs, pool)
	}
	return mio, nil
}

func tensorPoolParams(deviceID int, t model.TensorInfo, batchDim int) bufsurface.CreateParams {
	return bufsurface.CreateParams{
		BatchSize: batchDim,
		Width:     tensorByteSize(t),
		Height:    1,
		Format:    bufsurface.FormatMonochrome,
		Alignment: constants.DefaultAlignment,
		MemType:   bufsurface.MemPinnedHost,
		DeviceID:  deviceID,
	}
}

// checkout requests one staging surface per input and per output
// tensor, returning both sets or an error if any request fails (in
// which case the ones already taken are released back).
func (m *modelIO) checkout(ctx context.Context) (inputs, outputs []*bufsurface.Surface, err error) {
	release := func(surfs []*bufsurface.Surface) {
		for _, s := range surfs {
			s.Unref()
		}
	}
	for _, pool := range m.inputs {
		s, e := pool.Request(ctx)
		if e != nil {
			release(inputs)
			return nil, nil, e
		}
		inputs = append(inputs, s)
	}
	for _, pool := range m.outputs {
		s, e := pool.Request(ctx)
		if e != nil {
			release(inputs)
			release(outputs)
			return nil, nil, e
		}
		outputs = append(outputs, s)
	}
	return inputs, outputs, nil
}

func (m *modelIO) destroy(ctx context.Context) {
	for _, pool := range m.inputs {
		_ = pool.Destroy(ctx)
	}
	for _, pool := range m.outputs {
		_ = pool.Destroy(ctx)
	}
}
