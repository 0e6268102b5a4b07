package bufsurface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaneLayoutNV12(t *testing.T) {
	planes, err := planeLayout(FormatNV12, 100, 101, 64)
	require.NoError(t, err)
	require.Len(t, planes, 2)
	assert.Equal(t, 128, planes[0].Stride) // alignUp(100, 64)
	assert.Equal(t, 101, planes[0].Height)
	assert.Equal(t, 51, planes[1].Height) // (101+1)/2
	assert.Equal(t, planes[0].Stride, planes[1].Stride)
}

func TestPlaneLayoutI420(t *testing.T) {
	planes, err := planeLayout(FormatI420, 100, 100, 64)
	require.NoError(t, err)
	require.Len(t, planes, 3)
	assert.Equal(t, 128, planes[0].Stride)
	assert.Equal(t, planes[0].Stride/2, planes[1].Stride)
	assert.Equal(t, planes[1].Stride, planes[2].Stride)
	assert.Equal(t, 50, planes[1].Height)
}

func TestPlaneLayoutPacked(t *testing.T) {
	planes, err := planeLayout(FormatBGR24, 100, 100, 64)
	require.NoError(t, err)
	require.Len(t, planes, 1)
	assert.Equal(t, alignUp(300, 64), planes[0].Stride)
}

func TestPlaneLayoutRejectsUnknownFormat(t *testing.T) {
	_, err := planeLayout(ColorFormat(999), 10, 10, 64)
	assert.Error(t, err)
}

func TestPlaneLayoutRejectsNonPositiveDims(t *testing.T) {
	_, err := planeLayout(FormatNV12, 0, 10, 64)
	assert.Error(t, err)
}
