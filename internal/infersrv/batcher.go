package infersrv

import "time"

// BatchPolicy selects how a session's batcher groups items into
// dispatched batches.
type BatchPolicy int

const (
	// PolicyDynamic combines items across tags into one shared builder
	// (every tag in a session already shares one model and therefore one
	// preproc/postproc key, so the "same preproc/postproc keys and
	// model" condition always holds within a session) and flushes at
	// min(batch_dim, items_available) or on timeout.
	PolicyDynamic BatchPolicy = iota
	// PolicyStatic dispatches only once a builder equals batch_dim, and
	// a batch never contains more than one tag.
	PolicyStatic
	// PolicySequence never reorders within a tag and dispatches exactly
	// one item per batch.
	PolicySequence
)

// dynamicBuilderKey is the shared builder key under PolicyDynamic.
const dynamicBuilderKey = "*"

func builderKey(policy BatchPolicy, tag string) string {
	if policy == PolicyDynamic {
		return dynamicBuilderKey
	}
	return tag
}

// batchBuilder accumulates batch items for one builder key until it is
// full or its timeout elapses. The unit it counts against batch_dim is
// one InferData item, not one Package: a package with more items than
// batch_dim is split across however many dispatches it takes to drain.
type batchBuilder struct {
	policy       BatchPolicy
	batchDim     int
	timeout      time.Duration
	items        []batchItem
	firstArrival time.Time
}

func newBatchBuilder(policy BatchPolicy, batchDim int, timeout time.Duration) *batchBuilder {
	if batchDim <= 0 {
		batchDim = 1
	}
	return &batchBuilder{policy: policy, batchDim: batchDim, timeout: timeout}
}

func (b *batchBuilder) add(it batchItem) {
	if len(b.items) == 0 {
		b.firstArrival = it.pkg.enqueuedAt
	}
	b.items = append(b.items, it)
}

func (b *batchBuilder) empty() bool { return len(b.items) == 0 }

// ready reports whether the builder should be dispatched now. Under
// PolicyDynamic and PolicyStatic this compares against batch_dim even
// though flush only ever hands out one chunk at a time, so a builder
// holding more than batch_dim items stays ready across repeated
// ready/flush calls in the same tick until it is drained.
func (b *batchBuilder) ready(now time.Time) bool {
	switch b.policy {
	case PolicySequence:
		return len(b.items) >= 1
	case PolicyStatic:
		return len(b.items) >= b.batchDim
	default: // PolicyDynamic
		if len(b.items) == 0 {
			return false
		}
		if len(b.items) >= b.batchDim {
			return true
		}
		return now.Sub(b.firstArrival) >= b.timeout
	}
}

// flush detaches and returns one dispatchable chunk: up to batch_dim
// items (one item for PolicySequence), leaving any remainder queued
// for the next ready/flush round.
func (b *batchBuilder) flush() []batchItem {
	n := b.batchDim
	if b.policy == PolicySequence {
		n = 1
	}
	if n > len(b.items) {
		n = len(b.items)
	}
	chunk := b.items[:n]
	rest := b.items[n:]
	b.items = append([]batchItem(nil), rest...)
	if len(b.items) > 0 {
		b.firstArrival = b.items[0].pkg.enqueuedAt
	}
	return chunk
}

// drainAll detaches and returns every queued item regardless of
// batch_dim, for shutdown.
func (b *batchBuilder) drainAll() []batchItem {
	items := b.items
	b.items = nil
	return items
}

// priority is the highest Package.Priority among this builder's
// current items, used to order dispatch among builders that are ready
// at the same tick so a higher-priority tag's batch goes out first.
func (b *batchBuilder) priority() int {
	p := -1
	for _, it := range b.items {
		if it.pkg.Priority > p {
			p = it.pkg.Priority
		}
	}
	return p
}
