package bufsurface

import (
	"context"
	"fmt"
)

// Pool is a shape-fixed factory of surfaces: every surface it hands out
// was allocated with the same CreateParams. Request blocks until a
// surface is available (or ctx is done); a checked-out surface's slot
// stays consumed until every reference to it has been dropped, at
// which point it is recycled back into the free list automatically.
type Pool struct {
	params   CreateParams
	capacity int
	free     chan *Surface
}

// NewPool allocates capacity surfaces matching params and pre-fills the
// free list.
func NewPool(params CreateParams, capacity int) (*Pool, error) {
	p := &Pool{params: params, capacity: capacity, free: make(chan *Surface, capacity)}
	for i := 0; i < capacity; i++ {
		s, err := New(params)
		if err != nil {
			return nil, err
		}
		s.pool = p
		// New() starts surfaces at refs=1 for the standalone-ownership
		// case; zero it out before it enters the free list.
		s.refs = 0
		p.free <- s
	}
	return p, nil
}

// Request checks out a surface, blocking until one is free or ctx is done.
func (p *Pool) Request(ctx context.Context) (*Surface, error) {
	select {
	case s, ok := <-p.free:
		if !ok {
			return nil, fmt.Errorf("bufsurface: pool destroyed")
		}
		s.refs = 1
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// recycle is called by Surface.Unref once a pooled surface's reference
// count has dropped to zero.
func (p *Pool) recycle(s *Surface) {
	s.filled = 0
	select {
	case p.free <- s:
	default:
		// Pool already holds `capacity` surfaces; a double release.
	}
}

// Destroy waits for every checked-out surface to be recycled, then
// frees their backing memory.
func (p *Pool) Destroy(ctx context.Context) error {
	drained := make([]*Surface, 0, p.capacity)
	for len(drained) < p.capacity {
		select {
		case s := <-p.free:
			drained = append(drained, s)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	close(p.free)
	for _, s := range drained {
		s.free()
	}
	return nil
}
