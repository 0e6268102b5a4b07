// Package devmem models the accelerator's device context: device
// enumeration, per-worker-thread binding, and a generic blocking memory
// pool used by the buffer surface and inference engine packages.
package devmem

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/cambricon/easydk-go/internal/logging"
)

// CoreVersion identifies the accelerator generation a device belongs to.
// Nothing in this package or its callers branches on it; it is surfaced
// for logging and diagnostics only.
type CoreVersion int

const (
	CoreVersionInvalid CoreVersion = iota
	CoreVersionMLU220
	CoreVersionMLU270
	CoreVersionMLU370
	CoreVersionCE3226
)

func (v CoreVersion) String() string {
	switch v {
	case CoreVersionMLU220:
		return "MLU220"
	case CoreVersionMLU270:
		return "MLU270"
	case CoreVersionMLU370:
		return "MLU370"
	case CoreVersionCE3226:
		return "CE3226"
	default:
		return "INVALID"
	}
}

var (
	runtimeOnce  sync.Once
	runtimeMu    sync.Mutex
	deviceCount  int
	simulatedSet bool
)

// defaultSimulatedDeviceCount is used when the runtime has never been
// told otherwise; a real backend would query this from the driver, the
// way MluContext::GetDeviceNum does via cnrtGetDeviceCount.
const defaultSimulatedDeviceCount = 4

func initRuntime() {
	runtimeOnce.Do(func() {
		runtimeMu.Lock()
		defer runtimeMu.Unlock()
		if !simulatedSet {
			deviceCount = defaultSimulatedDeviceCount
		}
	})
}

// ConfigureSimulatedDevices overrides the device count the runtime
// reports. It must be called before the first Bind/EnumerateDevices in
// a process; it exists so tests can exercise multi-device code paths
// without real hardware.
func ConfigureSimulatedDevices(n int) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	deviceCount = n
	simulatedSet = true
}

// EnumerateDevices returns the number of devices visible to this
// process, performing one-time runtime init on first call.
func EnumerateDevices() int {
	initRuntime()
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	return deviceCount
}

// CheckDevice reports whether id names a valid device.
func CheckDevice(id int) bool {
	n := EnumerateDevices()
	return id >= 0 && id < n
}

// GetCoreVersion returns the simulated core generation for a device id.
// Real hardware would read this from device properties; here devices
// cycle through the known generations so multi-device tests can assert
// on heterogeneous fleets.
func GetCoreVersion(id int) CoreVersion {
	if !CheckDevice(id) {
		return CoreVersionInvalid
	}
	versions := []CoreVersion{CoreVersionMLU270, CoreVersionMLU220, CoreVersionMLU370, CoreVersionCE3226}
	return versions[id%len(versions)]
}

// Context is an explicit, validated binding to one device, carrying its
// id and a device-tagged logger instead of goroutine-local state. The
// device-scoped calls of devmem, bufsurface and taskqueue take a plain
// int device id, not a *Context.
type Context struct {
	deviceID int
	log      *logging.Logger
}

// Bind validates deviceID and returns a Context bound to it. Binding is
// cheap and side-effect free beyond validation; callers that also want
// the calling OS thread pinned to a CPU should call PinCurrentThread.
func Bind(deviceID int) (*Context, error) {
	if !CheckDevice(deviceID) {
		return nil, fmt.Errorf("devmem: invalid device id %d (have %d devices)", deviceID, EnumerateDevices())
	}
	return &Context{
		deviceID: deviceID,
		log:      logging.Default().WithComponent("devmem").WithDevice(deviceID),
	}, nil
}

// DeviceID returns the bound device id.
func (c *Context) DeviceID() int { return c.deviceID }

// CoreVersion returns the bound device's core generation.
func (c *Context) CoreVersion() CoreVersion { return GetCoreVersion(c.deviceID) }

// PinCurrentThread locks the calling goroutine to its OS thread and, if
// cpu is non-negative, sets that thread's CPU affinity mask to the
// single given CPU. It mirrors the per-queue pinning ublk's Runner does
// before entering its I/O loop, generalized to any device worker
// (pipeline node workers, inference engine executors).
//
// The caller owns the returned unlock func and must call it before the
// goroutine exits or is reused for unrelated work.
func (c *Context) PinCurrentThread(cpu int) (unlock func(), err error) {
	runtime.LockOSThread()
	unlock = runtime.UnlockOSThread

	if cpu < 0 {
		return unlock, nil
	}

	var mask unix.CPUSet
	mask.Set(cpu)
	if aerr := unix.SchedSetaffinity(0, &mask); aerr != nil {
		c.log.Warn("failed to set CPU affinity", "cpu", cpu, "error", aerr)
		return unlock, nil
	}
	c.log.Debug("pinned worker thread", "cpu", cpu)
	return unlock, nil
}
