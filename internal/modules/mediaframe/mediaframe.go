// Package mediaframe defines the payload every surrounding module
// (decode, inference adapter, OSD, encode) carries inside a
// pipeline.Frame.
package mediaframe

import (
	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/infersrv"
)

// MediaFrame is one decoded picture flowing through the pipeline:
// a buffer surface plus its presentation timestamp, annotated in
// place by downstream modules (inference results, then nothing
// further for OSD since drawing happens on the surface itself).
type MediaFrame struct {
	Surface    *bufsurface.Surface
	PTS        int64
	Detections []infersrv.Detection
}
