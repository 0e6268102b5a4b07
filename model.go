package easydk

import (
	"context"

	"github.com/cambricon/easydk-go/internal/model"
)

// DType is a tensor element type.
type DType = model.DType

const (
	DTypeU8  = model.DTypeU8
	DTypeF16 = model.DTypeF16
	DTypeF32 = model.DTypeF32
	DTypeI16 = model.DTypeI16
	DTypeI32 = model.DTypeI32
)

// Layout is a tensor dimension order.
type Layout = model.Layout

const (
	LayoutNCHW = model.LayoutNCHW
	LayoutNHWC = model.LayoutNHWC
	LayoutHWCN = model.LayoutHWCN
	LayoutTNC  = model.LayoutTNC
	LayoutNTC  = model.LayoutNTC
	LayoutNone = model.LayoutNone
)

// TensorInfo describes one model input or output.
type TensorInfo = model.TensorInfo

// ModelInfo describes a loaded model: its input/output tensor metadata
// and the content-addressed key preproc/postproc handlers attach to.
type ModelInfo = model.Info

// FetchFunc retrieves the raw manifest bytes for a model URL.
type FetchFunc = model.FetchFunc

// FileFetch reads a model manifest from the local filesystem.
func FileFetch(url string) ([]byte, error) { return model.FileFetch(url) }

// ModelCache loads model manifests and keeps an LRU cache of them,
// bounded by CNIS_MODEL_CACHE_LIMIT.
type ModelCache struct {
	loader *model.Loader
}

// NewModelCache creates a model cache. fetch defaults to reading model
// URLs as filesystem paths. limit <= 0 reads CNIS_MODEL_CACHE_LIMIT
// from the environment.
func NewModelCache(fetch FetchFunc, limit int) *ModelCache {
	return &ModelCache{loader: model.NewLoader(fetch, limit)}
}

// LoadModel loads the model named by url, reusing a cached Info if
// present and coalescing concurrent loads of the same url.
func (c *ModelCache) LoadModel(ctx context.Context, url string) (*ModelInfo, error) {
	return c.loader.LoadModel(ctx, url)
}

// UnloadModel removes a model from the cache by its content-addressed key.
func (c *ModelCache) UnloadModel(key string) { c.loader.UnloadModel(key) }

// ClearModelCache empties the cache entirely.
func (c *ModelCache) ClearModelCache() { c.loader.ClearModelCache() }

// Len reports how many models are currently cached.
func (c *ModelCache) Len() int { return c.loader.Len() }

// List returns every cached model's Info, most recently used first.
func (c *ModelCache) List() []*ModelInfo { return c.loader.List() }
