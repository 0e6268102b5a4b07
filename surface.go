package easydk

import "github.com/cambricon/easydk-go/internal/bufsurface"

// ColorFormat is a buffer surface pixel layout.
type ColorFormat = bufsurface.ColorFormat

const (
	FormatNV12       = bufsurface.FormatNV12
	FormatNV21       = bufsurface.FormatNV21
	FormatI420       = bufsurface.FormatI420
	FormatP010       = bufsurface.FormatP010
	FormatI010       = bufsurface.FormatI010
	FormatBGR24      = bufsurface.FormatBGR24
	FormatRGB24      = bufsurface.FormatRGB24
	FormatARGB       = bufsurface.FormatARGB
	FormatABGR       = bufsurface.FormatABGR
	FormatBGRA       = bufsurface.FormatBGRA
	FormatRGBA       = bufsurface.FormatRGBA
	FormatYUYV       = bufsurface.FormatYUYV
	FormatUYVY       = bufsurface.FormatUYVY
	FormatMonochrome = bufsurface.FormatMonochrome
)

// MemoryType is where a buffer surface's planes are allocated.
type MemoryType = bufsurface.MemoryType

const (
	MemDevice     = bufsurface.MemDevice
	MemPinnedHost = bufsurface.MemPinnedHost
	MemUnified    = bufsurface.MemUnified
	MemVBCached   = bufsurface.MemVBCached
)

// PlaneInfo describes one plane of a buffer surface's layout.
type PlaneInfo = bufsurface.PlaneInfo

// SurfaceParams configures a buffer surface or surface pool.
type SurfaceParams = bufsurface.CreateParams

// NewSurface allocates one buffer surface directly, outside of a pool.
func NewSurface(params SurfaceParams) (*Surface, error) { return bufsurface.New(params) }

// SurfacePool is a fixed-shape pool of buffer surfaces, handed out on
// Request and returned to the pool on Unref instead of being freed.
type SurfacePool = bufsurface.Pool

// NewSurfacePool creates a pool of capacity surfaces, all sharing params.
func NewSurfacePool(params SurfaceParams, capacity int) (*SurfacePool, error) {
	return bufsurface.NewPool(params, capacity)
}
