package infersrv

import (
	"sync"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/model"
)

// Preprocessor converts a batch of source surfaces into the model's
// input surface.
type Preprocessor interface {
	// OnTensorParams is called once per session start with the model's
	// input layout so the preprocessor can cache parameters.
	OnTensorParams(inputs []model.TensorInfo) error
	// OnPreproc writes src (one surface per batch item) into dst, a
	// surface shaped to the model input. srcRects is an optional
	// per-item crop list, aligned by index with src.
	OnPreproc(src []*bufsurface.Surface, dst *bufsurface.Surface, srcRects []Rect) error
}

// Postprocessor writes model output back into each Infer Data of a
// batch. Skipping postproc is legal; see lookupHandlers.
type Postprocessor interface {
	OnPostproc(dataVec [][]*InferData, modelOutput *bufsurface.Surface, info *model.Info) error
}

// Handlers is the pair of handlers registered for one model key.
type Handlers struct {
	Pre  Preprocessor
	Post Postprocessor // nil is legal: raw output is copied to each item
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Handlers{}
)

// RegisterHandlers installs the preproc/postproc pair for modelKey in
// the process-wide registry. Handlers must outlive every session that
// references them.
func RegisterHandlers(modelKey string, h Handlers) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[modelKey] = h
}

// UnregisterHandlers removes modelKey's handlers, if any.
func UnregisterHandlers(modelKey string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, modelKey)
}

// lookupHandlers returns the registered handlers for modelKey, falling
// back to defaultPreprocessor{} with no postprocessor when the key is
// unregistered.
func lookupHandlers(modelKey string) Handlers {
	registryMu.RLock()
	h, ok := registry[modelKey]
	registryMu.RUnlock()
	if !ok || h.Pre == nil {
		return Handlers{Pre: defaultPreprocessor{}, Post: h.Post}
	}
	return h
}

// defaultPreprocessor is the memcpy-from-host fallback used when a
// session's model has no registered preprocessor: it copies each
// source surface's host mirror into the corresponding slice of dst's
// host mirror, truncating to whichever is smaller.
type defaultPreprocessor struct{}

func (defaultPreprocessor) OnTensorParams([]model.TensorInfo) error { return nil }

func (defaultPreprocessor) OnPreproc(src []*bufsurface.Surface, dst *bufsurface.Surface, _ []Rect) error {
	for i, s := range src {
		if i >= dst.BatchSize() || s == nil {
			continue
		}
		srcBytes, err := s.ImageMirror(0)
		if err != nil {
			return err
		}
		dstBytes, err := dst.ImageMirror(i)
		if err != nil {
			return err
		}
		n := len(srcBytes)
		if len(dstBytes) < n {
			n = len(dstBytes)
		}
		copy(dstBytes[:n], srcBytes[:n])
	}
	return nil
}
