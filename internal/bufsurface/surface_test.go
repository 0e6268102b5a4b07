package bufsurface

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nv12Params(memType MemoryType) CreateParams {
	return CreateParams{BatchSize: 2, Width: 64, Height: 64, Format: FormatNV12, Alignment: 64, MemType: memType, DeviceID: 0}
}

func TestNewStandaloneSurfacePinnedHost(t *testing.T) {
	s, err := New(nv12Params(MemPinnedHost))
	require.NoError(t, err)
	assert.True(t, s.HasHostMirror())

	img0, err := s.ImageMirror(0)
	require.NoError(t, err)
	assert.Len(t, img0, s.PerImageSize())

	s.Unref()
}

func TestDeviceSurfaceHasNoHostMirror(t *testing.T) {
	s, err := New(nv12Params(MemDevice))
	require.NoError(t, err)
	assert.False(t, s.HasHostMirror())
	assert.Error(t, s.SyncToHost())
	s.Unref()
}

func TestRefUnrefFreesStandaloneSurface(t *testing.T) {
	s, err := New(nv12Params(MemPinnedHost))
	require.NoError(t, err)
	s.Ref()
	assert.EqualValues(t, 2, s.refCount())
	s.Unref()
	assert.EqualValues(t, 1, s.refCount())
	s.Unref()
	assert.EqualValues(t, 0, s.refCount())
}

func TestPoolRequestRecyclesOnUnref(t *testing.T) {
	pool, err := NewPool(nv12Params(MemPinnedHost), 1)
	require.NoError(t, err)

	s1, err := pool.Request(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Request(ctx)
	assert.Error(t, err, "pool should be exhausted while s1 is checked out")

	s1.Unref()

	s2, err := pool.Request(context.Background())
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestPoolRequestBlocksUntilRefDrops(t *testing.T) {
	pool, err := NewPool(nv12Params(MemPinnedHost), 1)
	require.NoError(t, err)

	s1, err := pool.Request(context.Background())
	require.NoError(t, err)
	s1.Ref() // codec holds an extra reference

	gotCh := make(chan *Surface, 1)
	go func() {
		s, err := pool.Request(context.Background())
		require.NoError(t, err)
		gotCh <- s
	}()

	time.Sleep(10 * time.Millisecond)
	s1.Unref() // drop the requester's own reference; codec's ref still outstanding
	select {
	case <-gotCh:
		t.Fatal("pool recycled the surface while codec still held a reference")
	case <-time.After(10 * time.Millisecond):
	}

	s1.Unref() // codec releases
	select {
	case got := <-gotCh:
		assert.Same(t, s1, got)
	case <-time.After(time.Second):
		t.Fatal("pool never recycled the surface")
	}
}

func TestPoolDestroyWaitsForOutstanding(t *testing.T) {
	pool, err := NewPool(nv12Params(MemPinnedHost), 1)
	require.NoError(t, err)
	s, err := pool.Request(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- pool.Destroy(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Destroy returned while a surface was still checked out")
	case <-time.After(20 * time.Millisecond):
	}

	s.Unref()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Destroy never returned")
	}
}
