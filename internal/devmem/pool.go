package devmem

import (
	"context"
	"fmt"
	"sync"
)

// Block is a single fixed-size allocation handed out by a Pool.
type Block struct {
	ID   int
	Data []byte
}

// Pool is a bounded, blocking pool of fixed-size memory blocks: every
// request either returns an immediately-available block or blocks until
// one is released.
//
// The free list is a buffered channel rather than a sync.Pool: callers
// need bounded capacity and context-aware blocking on exhaustion, which
// sync.Pool does not provide (it never blocks and may discard items
// under GC pressure).
type Pool struct {
	deviceID  int
	blockSize int
	capacity  int
	free      chan *Block

	mu        sync.Mutex
	destroyed bool // Destroy has started
	closed    bool // Destroy has drained every block and closed free
}

// NewPool allocates capacity blocks of blockSize bytes each, bound to
// deviceID for accounting purposes, and pre-fills the free list.
func NewPool(deviceID, blockSize, capacity int) *Pool {
	p := &Pool{
		deviceID:  deviceID,
		blockSize: blockSize,
		capacity:  capacity,
		free:      make(chan *Block, capacity),
	}
	for i := 0; i < capacity; i++ {
		p.free <- &Block{ID: i, Data: make([]byte, blockSize)}
	}
	return p
}

// BlockSize returns the fixed size of every block in the pool.
func (p *Pool) BlockSize() int { return p.blockSize }

// Capacity returns the total number of blocks the pool was created with.
func (p *Pool) Capacity() int { return p.capacity }

// Request returns a free block, blocking until one is available or ctx
// is done. A canceled or expired ctx yields ctx.Err(), while a
// destroyed pool yields a separate error, so callers can distinguish
// exhaustion from destruction.
func (p *Pool) Request(ctx context.Context) (*Block, error) {
	select {
	case b, ok := <-p.free:
		if !ok {
			return nil, fmt.Errorf("devmem: pool on device %d is destroyed", p.deviceID)
		}
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a block to the pool, including while Destroy is
// waiting for it. Releasing into a pool that already holds all of its
// blocks, or after Destroy has drained it, is silently ignored rather
// than panicking.
func (p *Pool) Release(b *Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.free <- b:
	default:
		// Pool already holds `capacity` blocks; a double release.
	}
}

// Destroy waits for every outstanding block to be released, then closes
// the pool. It blocks until ctx is done or all `capacity` blocks have
// been drained back in, so a caller can be sure no goroutine still
// holds a pointer into this pool's backing memory once Destroy returns.
func (p *Pool) Destroy(ctx context.Context) error {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return nil
	}
	p.destroyed = true
	p.mu.Unlock()

	drained := 0
	for drained < p.capacity {
		select {
		case <-p.free:
			drained++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	p.closed = true
	close(p.free)
	p.mu.Unlock()
	return nil
}
