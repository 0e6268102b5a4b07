package bufsurface

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	easydk "github.com/cambricon/easydk-go/internal/status"
)

// CreateParams are the recognized options for allocating a surface.
type CreateParams struct {
	BatchSize int
	Width     int
	Height    int
	Format    ColorFormat
	Alignment int
	MemType   MemoryType
	DeviceID  int
}

// Surface is a reference-counted batch of image planes backed by one
// memory block. It is created either standalone (New) or checked out
// of a Pool (Pool.Request); pooled surfaces return themselves to their
// pool's free list when the last reference drops instead of freeing
// their backing memory, so the pool can recycle them.
type Surface struct {
	batchSize int
	width     int
	height    int
	format    ColorFormat
	alignment int
	memType   MemoryType
	deviceID  int

	planes       []PlaneInfo
	perImageSize int

	mirror []byte // host-visible backing memory; nil when no host mirror exists
	mmaped bool   // mirror was obtained via unix.Mmap and must be Munmap'd

	refs   int32
	filled int32

	pool *Pool
}

// New allocates a standalone surface (not associated with a pool).
func New(params CreateParams) (*Surface, error) {
	if params.BatchSize <= 0 {
		return nil, easydk.NewDeviceError("bufsurface", "create", params.DeviceID, easydk.KindInvalidArg, "batch size must be positive")
	}
	alignment := params.Alignment
	if alignment <= 0 {
		alignment = 64
	}
	planes, err := planeLayout(params.Format, params.Width, params.Height, alignment)
	if err != nil {
		return nil, err
	}
	perImage := perImageSize(planes)
	total := perImage * params.BatchSize

	s := &Surface{
		batchSize:    params.BatchSize,
		width:        params.Width,
		height:       params.Height,
		format:       params.Format,
		alignment:    alignment,
		memType:      params.MemType,
		deviceID:     params.DeviceID,
		planes:       planes,
		perImageSize: perImage,
		refs:         1,
	}

	switch params.MemType {
	case MemPinnedHost, MemUnified, MemVBCached:
		buf, merr := unix.Mmap(-1, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
		if merr != nil {
			return nil, easydk.NewDeviceError("bufsurface", "create", params.DeviceID, easydk.KindBackend,
				"mmap host mirror: "+merr.Error())
		}
		s.mirror = buf
		s.mmaped = true
	case MemDevice:
		// Device-resident memory with no host mirror; SyncToHost/SyncToDevice
		// are invalid until a caller attaches one (not modeled here).
	}

	return s, nil
}

// BatchSize, Width, Height, Format, MemType, DeviceID, Planes, and
// FilledCount expose the surface's fixed attributes.
func (s *Surface) BatchSize() int       { return s.batchSize }
func (s *Surface) Width() int           { return s.width }
func (s *Surface) Height() int          { return s.height }
func (s *Surface) Format() ColorFormat  { return s.format }
func (s *Surface) MemType() MemoryType  { return s.memType }
func (s *Surface) DeviceID() int        { return s.deviceID }
func (s *Surface) Planes() []PlaneInfo  { return s.planes }
func (s *Surface) PerImageSize() int    { return s.perImageSize }
func (s *Surface) FilledCount() int     { return int(atomic.LoadInt32(&s.filled)) }
func (s *Surface) SetFilledCount(n int) { atomic.StoreInt32(&s.filled, int32(n)) }
func (s *Surface) HasHostMirror() bool  { return s.mirror != nil }

// ImageMirror returns the host-visible bytes for image index idx, or an
// error if this surface has no host mirror.
func (s *Surface) ImageMirror(idx int) ([]byte, error) {
	if s.mirror == nil {
		return nil, easydk.NewDeviceError("bufsurface", "sync", s.deviceID, easydk.KindInvalidArg, "surface has no host mirror")
	}
	if idx < 0 || idx >= s.batchSize {
		return nil, easydk.NewDeviceError("bufsurface", "sync", s.deviceID, easydk.KindInvalidArg, "image index out of range")
	}
	off := idx * s.perImageSize
	return s.mirror[off : off+s.perImageSize], nil
}

// SyncToHost is a no-op for mmap-backed memory types, since the mirror
// is already host-visible; it exists to preserve the component
// contract and fails for memory types without a mirror.
func (s *Surface) SyncToHost() error {
	if s.mirror == nil {
		return easydk.NewDeviceError("bufsurface", "sync_to_host", s.deviceID, easydk.KindInvalidArg, "no host mirror")
	}
	return nil
}

// SyncToDevice mirrors SyncToHost for the opposite direction.
func (s *Surface) SyncToDevice() error {
	if s.mirror == nil {
		return easydk.NewDeviceError("bufsurface", "sync_to_device", s.deviceID, easydk.KindInvalidArg, "no host mirror")
	}
	return nil
}

// Ref increments the surface's reference count. Callers that hand a
// surface to an asynchronous collaborator (the codec, a pipeline node
// worker) must Ref before doing so and Unref when done.
func (s *Surface) Ref() {
	atomic.AddInt32(&s.refs, 1)
}

// Unref decrements the reference count. When it reaches zero, a pooled
// surface is recycled back into its pool's free list; a standalone
// surface releases its backing memory.
func (s *Surface) Unref() {
	if atomic.AddInt32(&s.refs, -1) > 0 {
		return
	}
	if s.pool != nil {
		s.pool.recycle(s)
		return
	}
	s.free()
}

func (s *Surface) free() {
	if s.mmaped && s.mirror != nil {
		_ = unix.Munmap(s.mirror)
		s.mirror = nil
		s.mmaped = false
	}
}

// refCount exposes the live reference count for tests.
func (s *Surface) refCount() int32 { return atomic.LoadInt32(&s.refs) }

// RefCount returns the live reference count. Collaborators that hand a
// surface across a goroutine boundary without a direct handback path
// (the codec's OnFrame contract) use this to poll for drain instead of
// threading a completion channel through a callback signature they do
// not control.
func (s *Surface) RefCount() int32 { return s.refCount() }
