package infersrv

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cambricon/easydk-go/internal/bufsurface"
	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/cambricon/easydk-go/internal/engine"
	"github.com/cambricon/easydk-go/internal/logging"
	"github.com/cambricon/easydk-go/internal/metrics"
	"github.com/cambricon/easydk-go/internal/model"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// Descriptor configures a session.
type Descriptor struct {
	DeviceID     int
	ModelInfo    *model.Info
	Backend      engine.Backend
	EngineNum    int
	BatchPolicy  BatchPolicy
	BatchDim     int
	BatchTimeout time.Duration
	// Observer, if non-nil, makes this an async session; request is
	// legal and request_sync is not. A nil Observer makes it a sync
	// session: only request_sync is legal.
	Observer Observer
}

func (d *Descriptor) fillDefaults() {
	if d.EngineNum <= 0 {
		d.EngineNum = constants.DefaultEngineNum
	}
	if d.BatchDim <= 0 {
		d.BatchDim = constants.DefaultBatchDim
	}
	if d.BatchTimeout <= 0 {
		d.BatchTimeout = constants.DefaultBatchTimeout
	}
}

// tagState tracks in-flight count and the discard flag for one tag,
// backing wait_task_done and discard_task.
type tagState struct {
	inFlight  int
	discarded bool
}

// batchItem is one schedulable unit beneath a Package: either one of
// its Data entries, or the whole (dataless) package when it carries
// none. The batcher counts batch_dim against these, not against whole
// packages, so a package with more items than batch_dim is split
// across however many dispatches it takes to drain.
type batchItem struct {
	pkg     *Package
	dataIdx int // index into pkg.Data; -1 when pkg.Data is empty
}

// itemsOf flattens pkg into one batchItem per Data entry, or a single
// dataless item when pkg carries no Data.
func itemsOf(pkg *Package) []batchItem {
	if len(pkg.Data) == 0 {
		return []batchItem{{pkg: pkg, dataIdx: -1}}
	}
	items := make([]batchItem, len(pkg.Data))
	for i := range pkg.Data {
		items[i] = batchItem{pkg: pkg, dataIdx: i}
	}
	return items
}

func (it batchItem) surface() *bufsurface.Surface {
	if it.dataIdx < 0 || it.dataIdx >= len(it.pkg.Data) {
		return nil
	}
	d := it.pkg.Data[it.dataIdx]
	if d != nil && d.Kind == InferDataBufferSurface {
		return d.Surface
	}
	return nil
}

func (it batchItem) srcRect() Rect {
	if it.dataIdx >= 0 && it.dataIdx < len(it.pkg.SrcRects) {
		return it.pkg.SrcRects[it.dataIdx]
	}
	return Rect{}
}

// dataSlice returns the one-element re-slice of pkg.Data that backs
// this item, so a Postprocessor writing into dataVec[i][0] writes
// back into the original package's Data slice rather than a detached
// copy.
func (it batchItem) dataSlice() []*InferData {
	if it.dataIdx < 0 {
		return nil
	}
	return it.pkg.Data[it.dataIdx : it.dataIdx+1]
}

// pkgCount is how many of a batch's items belong to one Package.
type pkgCount struct {
	pkg *Package
	n   int
}

// groupByPkg groups items by owning Package, preserving first-seen
// order, so a dispatch spanning several packages (PolicyDynamic) or a
// package split across several dispatches both resolve to exactly one
// completion report per package.
func groupByPkg(items []batchItem) []pkgCount {
	var order []*Package
	counts := make(map[*Package]int)
	for _, it := range items {
		if _, ok := counts[it.pkg]; !ok {
			order = append(order, it.pkg)
		}
		counts[it.pkg]++
	}
	out := make([]pkgCount, len(order))
	for i, pkg := range order {
		out[i] = pkgCount{pkg: pkg, n: counts[pkg]}
	}
	return out
}

// pkgProgress tracks how many of a Package's batch items are still
// outstanding across however many dispatches it was split into, plus
// the worst status seen so far, so the session delivers exactly one
// Response per Package no matter how it was split.
type pkgProgress struct {
	mu        sync.Mutex
	remaining int
	status    easydk.Status
}

func newPkgProgress(n int) *pkgProgress {
	return &pkgProgress{remaining: n, status: easydk.StatusSuccess}
}

// statusRank orders statuses from best to worst so complete can track
// the worst status observed across a package's dispatches.
func statusRank(s easydk.Status) int {
	switch s {
	case easydk.StatusSuccess:
		return 0
	case easydk.StatusCanceled:
		return 1
	default:
		return 2
	}
}

// complete records n more of this package's items finishing at
// status. done reports whether every item has now reported in; worst
// is the highest-ranked status seen across all of them.
func (p *pkgProgress) complete(n int, status easydk.Status) (done bool, worst easydk.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if statusRank(status) > statusRank(p.status) {
		p.status = status
	}
	p.remaining -= n
	return p.remaining <= 0, p.status
}

// Session is one running configuration of the inference server bound
// to one model: an input queue, a batcher goroutine, an engine pool
// and a completion path, owned top-down to avoid cyclic
// session/batcher/engine references.
type Session struct {
	id   string
	desc Descriptor
	log  *logging.Logger

	eng *engine.Engine
	mio *modelIO

	pq       *priorityQueue
	builders map[string]*batchBuilder

	tagMu sync.Mutex
	tags  map[string]*tagState
	cond  *sync.Cond

	stats *sessionStats

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup // batcher goroutine + in-flight batch runners

	failedMu sync.Mutex
	failed   error // set once the session transitions to a terminal backend error
}

// CreateSession constructs and starts a session. It is async when
// desc.Observer is set, sync otherwise — the distinction only affects
// which of Request/RequestSync is legal, not how the session itself
// is built.
func CreateSession(desc Descriptor) (*Session, error) {
	desc.fillDefaults()
	if desc.ModelInfo == nil {
		return nil, easydk.NewError("infersrv", "create_session", easydk.KindInvalidArg, "model info is required")
	}
	if desc.Backend == nil {
		return nil, easydk.NewError("infersrv", "create_session", easydk.KindInvalidArg, "backend is required")
	}

	eng, err := engine.New(desc.DeviceID, desc.ModelInfo, desc.EngineNum, desc.Backend)
	if err != nil {
		return nil, easydk.Wrap("infersrv", "create_session", err)
	}
	mio, err := newModelIO(desc.DeviceID, desc.ModelInfo, desc.BatchDim, desc.EngineNum*2)
	if err != nil {
		_ = eng.Close(context.Background())
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		desc:     desc,
		log:      logging.Default().WithComponent("infersrv").WithDevice(desc.DeviceID),
		eng:      eng,
		mio:      mio,
		pq:       newPriorityQueue(),
		builders: make(map[string]*batchBuilder),
		tags:     make(map[string]*tagState),
		stats:    newSessionStats(id),
		closeCh:  make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.tagMu)

	handlers := lookupHandlers(desc.ModelInfo.Key)
	if handlers.Pre != nil {
		if err := handlers.Pre.OnTensorParams(desc.ModelInfo.Inputs); err != nil {
			_ = eng.Close(context.Background())
			mio.destroy(context.Background())
			return nil, easydk.Wrap("infersrv", "create_session", err)
		}
	}

	s.wg.Add(1)
	go s.runBatcher()

	registerSession(s)
	metrics.ActiveSessions.Inc()
	metrics.SessionsCreatedTotal.Inc()
	return s, nil
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) isFailed() error {
	s.failedMu.Lock()
	defer s.failedMu.Unlock()
	return s.failed
}

func (s *Session) markFailed(err error) {
	s.failedMu.Lock()
	if s.failed == nil {
		s.failed = err
	}
	s.failedMu.Unlock()
}

// Request enqueues pkg asynchronously. Legal only on sessions created
// with an Observer.
func (s *Session) Request(pkg *Package) error {
	if s.desc.Observer == nil {
		return easydk.NewError("infersrv", "request", easydk.KindInvalidArg, "request is only valid on an async session")
	}
	return s.enqueue(pkg)
}

// RequestSync enqueues pkg and blocks for its response or timeout.
// Legal only on sessions created without an Observer.
func (s *Session) RequestSync(ctx context.Context, pkg *Package, timeout time.Duration) (*Response, error) {
	if s.desc.Observer != nil {
		return nil, easydk.NewError("infersrv", "request_sync", easydk.KindInvalidArg, "request_sync is only valid on a sync session")
	}
	reply := make(chan *Response, 1)
	pkg.replyTo = reply
	if err := s.enqueue(pkg); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case resp := <-reply:
		return resp, nil
	case <-timer.C:
		// The buffered channel above is simply left unread: a late
		// result arriving after this point has nowhere to go.
		return &Response{Tag: pkg.Tag, UserData: pkg.UserData, Status: easydk.StatusTimeout},
			easydk.NewError("infersrv", "request_sync", easydk.KindTimeout, "request_sync timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) enqueue(pkg *Package) error {
	if err := s.isFailed(); err != nil {
		return easydk.Wrap("infersrv", "request", err)
	}
	select {
	case <-s.closeCh:
		return easydk.NewError("infersrv", "request", easydk.KindInvalidArg, "session is shutting down")
	default:
	}
	pkg.enqueuedAt = time.Now()
	s.incTag(pkg.Tag)
	s.pq.push(pkg)
	return nil
}

func (s *Session) incTag(tag string) {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	t, ok := s.tags[tag]
	if !ok {
		t = &tagState{}
		s.tags[tag] = t
	}
	t.inFlight++
}

func (s *Session) decTag(tag string) {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	if t, ok := s.tags[tag]; ok {
		t.inFlight--
		if t.inFlight <= 0 {
			s.cond.Broadcast()
		}
	}
}

// WaitTaskDone blocks until every in-flight item with tag has completed.
func (s *Session) WaitTaskDone(tag string) {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	for {
		t, ok := s.tags[tag]
		if !ok || t.inFlight <= 0 {
			return
		}
		s.cond.Wait()
	}
}

// DiscardTask marks tag's in-flight items to be dropped. Items already
// batched are still executed; their results are dropped before
// delivery and reported as CANCELED.
func (s *Session) DiscardTask(tag string) {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	t, ok := s.tags[tag]
	if !ok {
		t = &tagState{}
		s.tags[tag] = t
	}
	t.discarded = true
}

func (s *Session) tagDiscarded(tag string) bool {
	s.tagMu.Lock()
	defer s.tagMu.Unlock()
	t, ok := s.tags[tag]
	return ok && t.discarded
}

// Destroy drains the session: closes the input path, waits for the
// batcher and every in-flight batch to finish, then tears down the
// engine pool and staging buffers.
func (s *Session) Destroy(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closeCh) })
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mio.destroy(ctx)
	err := s.eng.Close(ctx)

	unregisterSession(s)
	metrics.ActiveSessions.Dec()
	metrics.SessionsDestroyedTotal.Inc()
	return err
}

// AggregateStats returns the session-wide performance snapshot.
func (s *Session) AggregateStats() Snapshot { return s.stats.AggregateSnapshot() }

// TagStats returns the per-tag performance snapshot.
func (s *Session) TagStats(tag string) Snapshot { return s.stats.TagSnapshot(tag) }

// runBatcher is the session's batcher thread: it drains the priority
// queue into per-builder-key batches and dispatches whichever
// builders are ready, polling at constants.BatcherPollInterval so
// timeout-only flushes still fire when no new item arrives.
func (s *Session) runBatcher() {
	defer s.wg.Done()
	for {
		select {
		case <-s.closeCh:
			s.drainOnShutdown()
			return
		default:
		}

		pkg, ok := s.pq.popHighest()
		if ok {
			s.route(pkg)
		}
		s.flushReady()

		if ok {
			continue
		}
		select {
		case <-s.pq.notify:
		case <-time.After(constants.BatcherPollInterval):
		case <-s.closeCh:
			s.drainOnShutdown()
			return
		}
	}
}

func (s *Session) route(pkg *Package) {
	if s.tagDiscarded(pkg.Tag) {
		// The batcher skips items of an already-discarded tag outright,
		// rather than paying for a dispatch only to drop the result
		// afterward.
		s.deliver(pkg, easydk.StatusCanceled)
		return
	}
	items := itemsOf(pkg)
	pkg.progress = newPkgProgress(len(items))
	key := builderKey(s.desc.BatchPolicy, pkg.Tag)
	b, ok := s.builders[key]
	if !ok {
		b = newBatchBuilder(s.desc.BatchPolicy, s.desc.BatchDim, s.desc.BatchTimeout)
		s.builders[key] = b
	}
	for _, it := range items {
		b.add(it)
	}
}

// flushReady dispatches every ready builder, higher-priority builders
// first: a builder's priority is the highest Package.Priority among
// its current items, so a higher-priority tag's batch preempts a
// lower-priority one waiting at the same dispatch decision. Under
// PolicyDynamic this has no visible effect (there is only ever one
// shared builder to order), which matches the single-builder design
// for that policy. Each ready builder may flush more than once per
// tick if it is holding more than batch_dim items.
func (s *Session) flushReady() {
	now := time.Now()
	type ready struct{ b *batchBuilder }
	var readyBuilders []ready
	for _, b := range s.builders {
		if b.ready(now) {
			readyBuilders = append(readyBuilders, ready{b: b})
		}
	}
	sort.SliceStable(readyBuilders, func(i, j int) bool {
		return readyBuilders[i].b.priority() > readyBuilders[j].b.priority()
	})
	for _, rb := range readyBuilders {
		for rb.b.ready(now) {
			items := rb.b.flush()
			if len(items) == 0 {
				break
			}
			s.wg.Add(1)
			go s.runBatch(items)
		}
	}
}

// drainOnShutdown flushes every non-empty builder and whatever remains
// in the priority queue as forced, undersized batches so every
// in-flight request resolves before Destroy returns.
func (s *Session) drainOnShutdown() {
	for _, b := range s.builders {
		if !b.empty() {
			s.wg.Add(1)
			go s.runBatch(b.drainAll())
		}
	}
	var tail []batchItem
	for {
		pkg, ok := s.pq.popHighest()
		if !ok {
			break
		}
		items := itemsOf(pkg)
		pkg.progress = newPkgProgress(len(items))
		tail = append(tail, items...)
	}
	if len(tail) > 0 {
		s.wg.Add(1)
		go s.runBatch(tail)
	}
}

// runBatch runs preproc -> infer -> postproc for one dispatched batch
// and reports completion for every package it touches, once per
// package for the whole batch.
func (s *Session) runBatch(items []batchItem) {
	defer s.wg.Done()

	if err := s.isFailed(); err != nil {
		s.failBatch(items, err)
		return
	}

	ctx := context.Background()
	inputs, outputs, err := s.mio.checkout(ctx)
	if err != nil {
		s.failBatch(items, err)
		return
	}
	defer func() {
		for _, surf := range inputs {
			surf.Unref()
		}
		for _, surf := range outputs {
			surf.Unref()
		}
	}()

	handlers := lookupHandlers(s.desc.ModelInfo.Key)
	srcSurfaces := make([]*bufsurface.Surface, len(items))
	srcRects := make([]Rect, len(items))
	for i, it := range items {
		srcSurfaces[i] = it.surface()
		srcRects[i] = it.srcRect()
	}

	var runErr error
	if len(inputs) > 0 {
		runErr = handlers.Pre.OnPreproc(srcSurfaces, inputs[0], srcRects)
	}
	if runErr == nil {
		_, runErr = s.eng.Run(ctx, inputs, outputs)
	}
	if runErr == nil && len(outputs) > 0 {
		if handlers.Post != nil {
			dataVecs := make([][]*InferData, len(items))
			for i, it := range items {
				dataVecs[i] = it.dataSlice()
			}
			runErr = handlers.Post.OnPostproc(dataVecs, outputs[0], s.desc.ModelInfo)
		} else {
			// Skipping postproc is legal: write the raw model output
			// tensor into each item's Infer Data directly.
			runErr = writeRawOutput(items, outputs[0])
		}
	}
	if runErr != nil {
		s.markFailed(runErr)
		s.failBatch(items, runErr)
		return
	}

	for _, pc := range groupByPkg(items) {
		status := easydk.StatusSuccess
		if s.tagDiscarded(pc.pkg.Tag) {
			status = easydk.StatusCanceled
		}
		s.finishPkgItems(pc.pkg, pc.n, status)
	}
}

func (s *Session) failBatch(items []batchItem, err error) {
	s.log.Warnf("batch failed: %v", err)
	for _, pc := range groupByPkg(items) {
		s.finishPkgItems(pc.pkg, pc.n, easydk.KindBackend.Status())
	}
}

// finishPkgItems records n of pkg's batch items completing at status,
// delivering pkg's single Response only once every one of its items
// (across however many dispatches it was split into) has reported in.
func (s *Session) finishPkgItems(pkg *Package, n int, status easydk.Status) {
	done, worst := pkg.progress.complete(n, status)
	if !done {
		return
	}
	s.deliver(pkg, worst)
}

func (s *Session) deliver(pkg *Package, status easydk.Status) {
	defer s.decTag(pkg.Tag)

	canceled := status == easydk.StatusCanceled
	s.stats.recordCompletion(pkg.Tag, len(pkg.Data), time.Since(pkg.enqueuedAt), canceled)

	resp := &Response{Tag: pkg.Tag, UserData: pkg.UserData, Status: status, Data: pkg.Data}
	if pkg.replyTo != nil {
		select {
		case pkg.replyTo <- resp:
		default:
		}
		return
	}
	if s.desc.Observer != nil {
		s.desc.Observer.OnResponse(resp)
	}
}

// writeRawOutput copies output's i'th image into the i'th item's
// Infer Data as a raw buffer, the default behaviour when a session has
// no registered postprocessor.
func writeRawOutput(items []batchItem, output *bufsurface.Surface) error {
	for i, it := range items {
		if i >= output.BatchSize() || it.dataIdx < 0 {
			continue
		}
		raw, err := output.ImageMirror(i)
		if err != nil {
			return err
		}
		cp := make([]byte, len(raw))
		copy(cp, raw)
		it.pkg.Data[it.dataIdx].Kind = InferDataBuffer
		it.pkg.Data[it.dataIdx].Buffer = cp
	}
	return nil
}
