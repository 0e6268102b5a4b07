package infersrv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testItem(now time.Time) batchItem {
	return batchItem{pkg: &Package{enqueuedAt: now}, dataIdx: -1}
}

func TestBatchBuilderStaticDispatchesOnlyAtBatchDim(t *testing.T) {
	b := newBatchBuilder(PolicyStatic, 4, time.Hour)
	now := time.Now()
	for i := 0; i < 3; i++ {
		b.add(testItem(now))
		assert.False(t, b.ready(now))
	}
	b.add(testItem(now))
	assert.True(t, b.ready(now))
	items := b.flush()
	assert.Len(t, items, 4)
	assert.True(t, b.empty())
}

func TestBatchBuilderDynamicFlushesOnTimeout(t *testing.T) {
	b := newBatchBuilder(PolicyDynamic, 8, 10*time.Millisecond)
	start := time.Now()
	b.add(testItem(start))
	assert.False(t, b.ready(start))
	assert.True(t, b.ready(start.Add(11*time.Millisecond)))
}

func TestBatchBuilderDynamicFlushesAtBatchDimBeforeTimeout(t *testing.T) {
	b := newBatchBuilder(PolicyDynamic, 2, time.Hour)
	now := time.Now()
	b.add(testItem(now))
	b.add(testItem(now))
	assert.True(t, b.ready(now))
}

func TestBatchBuilderSequenceReadyOnFirstItem(t *testing.T) {
	b := newBatchBuilder(PolicySequence, 8, time.Hour)
	now := time.Now()
	assert.False(t, b.ready(now))
	b.add(testItem(now))
	assert.True(t, b.ready(now))
	items := b.flush()
	assert.Len(t, items, 1)
}

func TestBatchBuilderSplitsOversizedItemSetAcrossFlushes(t *testing.T) {
	b := newBatchBuilder(PolicyDynamic, 4, 50*time.Millisecond)
	now := time.Now()
	for i := 0; i < 10; i++ {
		b.add(testItem(now))
	}

	assert.True(t, b.ready(now))
	first := b.flush()
	assert.Len(t, first, 4)

	assert.True(t, b.ready(now))
	second := b.flush()
	assert.Len(t, second, 4)

	// 2 items remain: too few for batch_dim, not yet timed out.
	assert.False(t, b.ready(now))
	assert.True(t, b.ready(now.Add(51*time.Millisecond)))
	third := b.flush()
	assert.Len(t, third, 2)
	assert.True(t, b.empty())
}

func TestBatchBuilderPriorityIsMaxAmongCurrentItems(t *testing.T) {
	b := newBatchBuilder(PolicyStatic, 4, time.Hour)
	now := time.Now()
	b.add(batchItem{pkg: &Package{enqueuedAt: now, Priority: 1}, dataIdx: -1})
	b.add(batchItem{pkg: &Package{enqueuedAt: now, Priority: 5}, dataIdx: -1})
	b.add(batchItem{pkg: &Package{enqueuedAt: now, Priority: 3}, dataIdx: -1})
	assert.Equal(t, 5, b.priority())
}

func TestBuilderKeySharesDynamicAcrossTags(t *testing.T) {
	assert.Equal(t, builderKey(PolicyDynamic, "a"), builderKey(PolicyDynamic, "b"))
	assert.NotEqual(t, builderKey(PolicyStatic, "a"), builderKey(PolicyStatic, "b"))
	assert.NotEqual(t, builderKey(PolicySequence, "a"), builderKey(PolicySequence, "b"))
}
