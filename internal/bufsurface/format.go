// Package bufsurface implements the reference-counted, multi-plane
// image buffer ("buffer surface") and its recycling pool, the memory
// representation that decode, inference, and encode all pass frames
// through.
package bufsurface

import (
	easydk "github.com/cambricon/easydk-go/internal/status"
)

// ColorFormat enumerates the pixel layouts a surface can carry.
type ColorFormat int

const (
	FormatNV12 ColorFormat = iota
	FormatNV21
	FormatI420
	FormatP010
	FormatI010
	FormatBGR24
	FormatRGB24
	FormatARGB
	FormatABGR
	FormatBGRA
	FormatRGBA
	FormatYUYV
	FormatUYVY
	FormatMonochrome
)

func (f ColorFormat) String() string {
	switch f {
	case FormatNV12:
		return "NV12"
	case FormatNV21:
		return "NV21"
	case FormatI420:
		return "I420"
	case FormatP010:
		return "P010"
	case FormatI010:
		return "I010"
	case FormatBGR24:
		return "BGR24"
	case FormatRGB24:
		return "RGB24"
	case FormatARGB:
		return "ARGB"
	case FormatABGR:
		return "ABGR"
	case FormatBGRA:
		return "BGRA"
	case FormatRGBA:
		return "RGBA"
	case FormatYUYV:
		return "YUYV"
	case FormatUYVY:
		return "UYVY"
	case FormatMonochrome:
		return "MONOCHROME"
	default:
		return "UNKNOWN"
	}
}

// MemoryType tags where a surface's backing memory lives.
type MemoryType int

const (
	MemDevice MemoryType = iota
	MemPinnedHost
	MemUnified
	MemVBCached
)

func (m MemoryType) String() string {
	switch m {
	case MemDevice:
		return "DEVICE"
	case MemPinnedHost:
		return "PINNED_HOST"
	case MemUnified:
		return "UNIFIED"
	case MemVBCached:
		return "VB_CACHED"
	default:
		return "UNKNOWN"
	}
}

// PlaneInfo describes one plane of one image within a surface.
type PlaneInfo struct {
	Width  int
	Height int
	Stride int
	Size   int
}

// formatPlanes returns a format's plane count and the bytes per pixel
// of its first plane; chroma planes are derived from it below.
func formatPlanes(format ColorFormat) (planes, bytesPerPixel int, err error) {
	switch format {
	case FormatNV12, FormatNV21:
		return 2, 1, nil
	case FormatP010, FormatI010:
		return 2, 2, nil
	case FormatI420:
		return 3, 1, nil
	case FormatBGR24, FormatRGB24:
		return 1, 3, nil
	case FormatARGB, FormatABGR, FormatBGRA, FormatRGBA:
		return 1, 4, nil
	case FormatYUYV, FormatUYVY:
		return 1, 2, nil
	case FormatMonochrome:
		return 1, 1, nil
	default:
		return 0, 0, easydk.NewError("bufsurface", "plane_layout", easydk.KindInvalidArg, "unknown color format")
	}
}

func alignUp(v, alignment int) int {
	if alignment <= 1 {
		return v
	}
	return (v + alignment - 1) / alignment * alignment
}

// planeLayout computes the per-image plane table for one image of the
// given dimensions, following the alignment and chroma-subsampling
// rules: stride[0] is rounded up to alignment; for 2-plane and 3-plane
// YUV formats plane[k>0].height is (height+1)/2, and stride[k>0] is
// stride[0] for 2-plane formats or stride[k-1]/2 for 3-plane formats.
func planeLayout(format ColorFormat, width, height, alignment int) ([]PlaneInfo, error) {
	planes, bpp, err := formatPlanes(format)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, easydk.NewError("bufsurface", "plane_layout", easydk.KindInvalidArg, "width and height must be positive")
	}
	if alignment <= 0 {
		alignment = 1
	}

	stride0 := alignUp(width*bpp, alignment)
	result := make([]PlaneInfo, planes)
	result[0] = PlaneInfo{Width: width, Height: height, Stride: stride0, Size: stride0 * height}
	if planes == 1 {
		return result, nil
	}

	chromaHeight := (height + 1) / 2
	switch planes {
	case 2:
		result[1] = PlaneInfo{Width: width, Height: chromaHeight, Stride: stride0, Size: stride0 * chromaHeight}
	case 3:
		stride1 := stride0 / 2
		result[1] = PlaneInfo{Width: width / 2, Height: chromaHeight, Stride: stride1, Size: stride1 * chromaHeight}
		result[2] = PlaneInfo{Width: width / 2, Height: chromaHeight, Stride: stride1, Size: stride1 * chromaHeight}
	}
	return result, nil
}

func perImageSize(planes []PlaneInfo) int {
	total := 0
	for _, p := range planes {
		total += p.Size
	}
	return total
}
