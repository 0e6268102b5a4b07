package easydk

import (
	"context"
	"time"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/engine"
	"github.com/cambricon/easydk-go/internal/infersrv"
)

// BatchPolicy selects how a session's batcher groups items into
// dispatched batches: DYNAMIC shares one builder across every tag,
// STATIC dispatches only once a builder reaches BatchDim and never
// mixes tags in one batch, and SEQUENCE dispatches exactly one item
// per batch, preserving per-tag order.
type BatchPolicy = infersrv.BatchPolicy

const (
	PolicyDynamic  = infersrv.PolicyDynamic
	PolicyStatic   = infersrv.PolicyStatic
	PolicySequence = infersrv.PolicySequence
)

// Backend runs one batch of inputs through a loaded model, writing
// results into outputs.
type Backend = engine.Backend

// InferDataKind tags which variant of InferData is populated.
type InferDataKind = infersrv.InferDataKind

const (
	InferDataBuffer        = infersrv.InferDataBuffer
	InferDataBufferSurface = infersrv.InferDataBufferSurface
	InferDataDict          = infersrv.InferDataDict
	InferDataDetections    = infersrv.InferDataDetections
)

// Detection is one object-detection style result.
type Detection = infersrv.Detection

// InferData carries one polymorphic unit of request/response payload.
type InferData = infersrv.InferData

// Rect is an optional per-item crop used by preproc (src_rects).
type Rect = infersrv.Rect

// Surface is a ref-counted, multi-plane device image buffer.
type Surface = bufsurface.Surface

// Package is one request submitted to a session.
type Package = infersrv.Package

// Response is what a session delivers back, either to an Observer or
// to a RequestSync caller.
type Response = infersrv.Response

// Observer receives completed packages for an async session.
type Observer = infersrv.Observer

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc = infersrv.ObserverFunc

// Snapshot is a point-in-time read of a session's or tag's perf counters.
type Snapshot = infersrv.Snapshot

// SessionDescriptor configures a session: its backing model, engine
// pool size, batching policy, and whether it is async (Observer
// non-nil) or sync (Observer nil).
type SessionDescriptor = infersrv.Descriptor

// Session is one running configuration of the inference server bound
// to one model: an input queue, a batcher goroutine, an engine pool,
// and a completion path.
type Session struct {
	s *infersrv.Session
}

// CreateSession starts a session from desc.
func CreateSession(desc SessionDescriptor) (*Session, error) {
	s, err := infersrv.CreateSession(desc)
	if err != nil {
		return nil, err
	}
	return &Session{s: s}, nil
}

// ID returns the session's generated identifier.
func (sess *Session) ID() string { return sess.s.ID() }

// Request submits pkg asynchronously; legal only on an async session.
func (sess *Session) Request(pkg *Package) error { return sess.s.Request(pkg) }

// RequestSync submits pkg and blocks for its Response or until timeout
// elapses; legal only on a sync session.
func (sess *Session) RequestSync(ctx context.Context, pkg *Package, timeout time.Duration) (*Response, error) {
	return sess.s.RequestSync(ctx, pkg, timeout)
}

// WaitTaskDone blocks until every in-flight package for tag has been
// delivered.
func (sess *Session) WaitTaskDone(tag string) { sess.s.WaitTaskDone(tag) }

// DiscardTask marks tag so its queued and future packages complete with
// StatusCanceled without running inference; items already batched
// still run, and their results are reported as StatusCanceled.
func (sess *Session) DiscardTask(tag string) { sess.s.DiscardTask(tag) }

// Destroy drains in-flight work and stops the session's goroutines.
func (sess *Session) Destroy(ctx context.Context) error { return sess.s.Destroy(ctx) }

// AggregateStats reports this session's lifetime counters.
func (sess *Session) AggregateStats() Snapshot { return sess.s.AggregateStats() }

// TagStats reports one tag's lifetime counters.
func (sess *Session) TagStats(tag string) Snapshot { return sess.s.TagStats(tag) }
