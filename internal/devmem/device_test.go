package devmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindValidatesDeviceID(t *testing.T) {
	ConfigureSimulatedDevices(2)

	ctx, err := Bind(0)
	require.NoError(t, err)
	assert.Equal(t, 0, ctx.DeviceID())

	_, err = Bind(5)
	assert.Error(t, err)
}

func TestCheckDevice(t *testing.T) {
	ConfigureSimulatedDevices(3)
	assert.True(t, CheckDevice(0))
	assert.True(t, CheckDevice(2))
	assert.False(t, CheckDevice(3))
	assert.False(t, CheckDevice(-1))
}

func TestCoreVersionOfInvalidDevice(t *testing.T) {
	ConfigureSimulatedDevices(1)
	assert.Equal(t, CoreVersionInvalid, GetCoreVersion(99))
}

func TestPinCurrentThreadWithoutAffinity(t *testing.T) {
	ConfigureSimulatedDevices(1)
	ctx, err := Bind(0)
	require.NoError(t, err)

	unlock, err := ctx.PinCurrentThread(-1)
	require.NoError(t, err)
	unlock()
}
