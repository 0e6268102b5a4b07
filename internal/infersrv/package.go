// Package infersrv implements the inference server: a session holds a
// multi-priority input queue, a per-tag batcher, a pool of inference
// engines, and a completion dispatcher that delivers finished packages
// to an async observer or a synchronous waiter.
package infersrv

import (
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// InferDataKind tags which variant of InferData is populated: a
// tagged variant rather than runtime-type downcasting.
type InferDataKind int

const (
	InferDataBuffer InferDataKind = iota
	InferDataBufferSurface
	InferDataDict
	InferDataDetections
)

// Detection is one object-detection style result.
type Detection struct {
	ClassID int
	Score   float32
	Box     [4]float32 // x0, y0, x1, y1
}

// InferData carries one polymorphic unit of request/response payload.
type InferData struct {
	Kind    InferDataKind
	Buffer  []byte
	Surface *bufsurface.Surface
	Dict    map[string]interface{}
	Boxes   []Detection
}

// Rect is an optional per-item crop used by preproc (src_rects).
type Rect struct{ X0, Y0, X1, Y1 int }

// Package is one request submitted to a session. When Data holds more
// than one item, the batcher may split it across several dispatches;
// progress tracks how many of those dispatches remain so exactly one
// Response is delivered for the whole Package regardless of how it
// was split.
type Package struct {
	Tag      string
	Priority int // 0..9, higher preempts lower at dispatch decision time
	UserData interface{}
	Data     []*InferData
	SrcRects []Rect

	enqueuedAt time.Time
	replyTo    chan *Response // non-nil for request_sync
	progress   *pkgProgress
}

// Response is what a session delivers back, either to an Observer or
// to the RequestSync caller.
type Response struct {
	Tag      string
	UserData interface{}
	Status   easydk.Status
	Data     []*InferData
}

// Observer receives completed packages for an async session.
type Observer interface {
	OnResponse(resp *Response)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(resp *Response)

func (f ObserverFunc) OnResponse(resp *Response) { f(resp) }
