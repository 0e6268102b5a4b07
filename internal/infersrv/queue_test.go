package infersrv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityQueuePopsHighestFirst(t *testing.T) {
	q := newPriorityQueue()
	q.push(&Package{Tag: "low", Priority: 1})
	q.push(&Package{Tag: "high", Priority: 9})
	q.push(&Package{Tag: "mid", Priority: 5})

	p, ok := q.popHighest()
	assert.True(t, ok)
	assert.Equal(t, "high", p.Tag)

	p, ok = q.popHighest()
	assert.True(t, ok)
	assert.Equal(t, "mid", p.Tag)

	p, ok = q.popHighest()
	assert.True(t, ok)
	assert.Equal(t, "low", p.Tag)

	_, ok = q.popHighest()
	assert.False(t, ok)
}

func TestPriorityQueueFIFOWithinLane(t *testing.T) {
	q := newPriorityQueue()
	q.push(&Package{Tag: "a", Priority: 3})
	q.push(&Package{Tag: "b", Priority: 3})
	q.push(&Package{Tag: "c", Priority: 3})

	for _, want := range []string{"a", "b", "c"} {
		p, ok := q.popHighest()
		assert.True(t, ok)
		assert.Equal(t, want, p.Tag)
	}
}

func TestPriorityQueueClampsOutOfRangePriority(t *testing.T) {
	q := newPriorityQueue()
	q.push(&Package{Tag: "over", Priority: 99})
	q.push(&Package{Tag: "under", Priority: -5})

	p, ok := q.popHighest()
	assert.True(t, ok)
	assert.Equal(t, "over", p.Tag)
}
