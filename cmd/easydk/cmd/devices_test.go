package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	easydk "github.com/cambricon/easydk-go"
)

func TestDevicesCmdRunsAgainstSimulatedDevices(t *testing.T) {
	easydk.ConfigureSimulatedDevices(2)
	assert.NoError(t, devicesCmd.RunE(devicesCmd, nil))
}
