package easydk

import "github.com/cambricon/easydk-go/internal/devmem"

// CoreVersion identifies the accelerator generation a device belongs to.
type CoreVersion = devmem.CoreVersion

const (
	CoreVersionInvalid = devmem.CoreVersionInvalid
	CoreVersionMLU220  = devmem.CoreVersionMLU220
	CoreVersionMLU270  = devmem.CoreVersionMLU270
	CoreVersionMLU370  = devmem.CoreVersionMLU370
	CoreVersionCE3226  = devmem.CoreVersionCE3226
)

// Device is a binding of the calling goroutine to one accelerator
// device context (device_context bind/enumerate/core version).
type Device struct {
	ctx *devmem.Context
}

// EnumerateDevices reports how many accelerator devices are visible to
// this process.
func EnumerateDevices() int { return devmem.EnumerateDevices() }

// CheckDevice reports whether id names a visible device.
func CheckDevice(id int) bool { return devmem.CheckDevice(id) }

// GetCoreVersion reports the accelerator generation of device id.
func GetCoreVersion(id int) CoreVersion { return devmem.GetCoreVersion(id) }

// ConfigureSimulatedDevices sets how many devices EnumerateDevices
// reports in test/demo builds without real hardware attached.
func ConfigureSimulatedDevices(n int) { devmem.ConfigureSimulatedDevices(n) }

// BindDevice validates deviceID and returns a Device bound to it.
func BindDevice(deviceID int) (*Device, error) {
	ctx, err := devmem.Bind(deviceID)
	if err != nil {
		return nil, err
	}
	return &Device{ctx: ctx}, nil
}

// ID returns the bound device id.
func (d *Device) ID() int { return d.ctx.DeviceID() }

// CoreVersion returns the bound device's accelerator generation.
func (d *Device) CoreVersion() CoreVersion { return d.ctx.CoreVersion() }

// PinCurrentThread locks the calling goroutine to its OS thread and,
// if cpu is non-negative, binds that thread to a single CPU.
func (d *Device) PinCurrentThread(cpu int) (unlock func(), err error) {
	return d.ctx.PinCurrentThread(cpu)
}
