// Package inferadapter is the pipeline module that wraps a
// mediaframe.MediaFrame into an inference server Package, blocks on
// request_sync, and annotates the frame with the response.
package inferadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/cambricon/easydk-go/internal/infersrv"
	"github.com/cambricon/easydk-go/internal/logging"
	"github.com/cambricon/easydk-go/internal/modules/mediaframe"
	"github.com/cambricon/easydk-go/internal/pipeline"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// Module submits every non-EOS frame to a synchronous inference
// session and waits for the result before passing the frame on; the
// session must have been created with a nil Observer.
type Module struct {
	Session  *infersrv.Session
	Tag      string
	Priority int
	Timeout  time.Duration

	log *logging.Logger
}

func (m *Module) Open() error {
	m.log = logging.Default().WithComponent("modules.inferadapter")
	if m.Timeout <= 0 {
		m.Timeout = 5 * time.Second
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

	tag := m.Tag
	if tag == "" {
		tag = fmt.Sprintf("stream-%d", f.StreamID)
	}

	pkg := &infersrv.Package{
		Tag:      tag,
		Priority: m.Priority,
		Data: []*infersrv.InferData{
			{Kind: infersrv.InferDataBufferSurface, Surface: mf.Surface},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.Timeout)
	defer cancel()
	resp, err := m.Session.RequestSync(ctx, pkg, m.Timeout)
	if err != nil {
		m.log.Warnf("inference request failed for stream %d: %v", f.StreamID, err)
		return f, err
	}
	if resp.Status != easydk.StatusSuccess {
		m.log.Warnf("inference response status %v for stream %d", resp.Status, f.StreamID)
		return f, nil
	}

	mf.Detections = extractDetections(resp.Data)
	return f, nil
}

func (m *Module) Close() error { return nil }

func extractDetections(data []*infersrv.InferData) []infersrv.Detection {
	for _, d := range data {
		if d == nil {
			continue
		}
		if d.Kind == infersrv.InferDataDetections {
			return d.Boxes
		}
	}
	return nil
}
