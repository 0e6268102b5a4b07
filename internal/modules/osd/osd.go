// Package osd is the pipeline module that overlays inference results
// onto a decoded picture. The drawing algorithm itself — concrete OSD
// rendering helpers — is out of scope here; this package only wires a
// pluggable Renderer into the pipeline the way the codec package wires
// an opaque codec service.
package osd

import (
	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/infersrv"
	"github.com/cambricon/easydk-go/internal/modules/mediaframe"
	"github.com/cambricon/easydk-go/internal/pipeline"
)

// Renderer draws boxes onto surf. Implementations live outside this
// module (OpenCV or similar); Module treats Renderer as an opaque
// collaborator, never inspecting pixels itself.
type Renderer interface {
	Draw(surf *bufsurface.Surface, boxes []infersrv.Detection) error
}

// noopRenderer is the default Renderer: it leaves the surface
// untouched, letting a caller exercise the full pipeline without a
// real drawing backend (mirrors the default preprocessor memcpy
// fallback in internal/infersrv).
type noopRenderer struct{}

func (noopRenderer) Draw(*bufsurface.Surface, []infersrv.Detection) error { return nil }

// Module overlays each frame's detections onto its surface in place.
type Module struct {
	Renderer Renderer
}

func (m *Module) Open() error {
	if m.Renderer == nil {
		m.Renderer = noopRenderer{}
	}
	return nil
}

func (m *Module) Process(f *pipeline.Frame) (*pipeline.Frame, error) {
	if f.EOS {
		return f, nil
	}
	mf, ok := f.Payload.(*mediaframe.MediaFrame)
	if !ok || mf.Surface == nil {
		return f, nil
	}
	if err := m.Renderer.Draw(mf.Surface, mf.Detections); err != nil {
		return nil, err
	}
	return f, nil
}

func (m *Module) Close() error { return nil }
