// Package model implements the model loader: parsing a model manifest
// into shape/layout metadata and caching loaded models under an LRU
// policy bounded by CNIS_MODEL_CACHE_LIMIT.
package model

// DType is a tensor element type.
type DType string

const (
	DTypeU8  DType = "u8"
	DTypeF16 DType = "f16"
	DTypeF32 DType = "f32"
	DTypeI16 DType = "i16"
	DTypeI32 DType = "i32"
)

// Layout is a tensor dimension order.
type Layout string

const (
	LayoutNCHW Layout = "NCHW"
	LayoutNHWC Layout = "NHWC"
	LayoutHWCN Layout = "HWCN"
	LayoutTNC  Layout = "TNC"
	LayoutNTC  Layout = "NTC"
	LayoutNone Layout = "NONE"
)

// TensorInfo describes one model input or output.
type TensorInfo struct {
	Shape []int  `json:"shape"`
	DType DType  `json:"dtype"`
	Order Layout `json:"order"`
}

// manifest is the on-disk/wire shape of a model package, parsed with
// json-iterator.
type manifest struct {
	Inputs  []TensorInfo `json:"inputs"`
	Outputs []TensorInfo `json:"outputs"`
}

// Info describes a loaded model: its input/output tensor metadata and
// the content-addressed key other components use to attach per-model
// preproc/postproc handlers.
type Info struct {
	Key     string
	URL     string
	Inputs  []TensorInfo
	Outputs []TensorInfo
}

func (i *Info) InputCount() int  { return len(i.Inputs) }
func (i *Info) OutputCount() int { return len(i.Outputs) }
