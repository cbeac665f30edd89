//go:build !nogpu

// Package gpu registers the WebGPU executor for hardware-accelerated
// adjustment.
//
// Import this package to make the "wgpu" executor available to sessions.
// The executor runs the adjustment kernel as a wgpu/hal compute shader,
// one invocation per pixel.
//
// Device creation is lazy: nothing touches the GPU until a session asks
// for the executor. If no usable device exists (no Vulkan available),
// executor construction fails and adjust.DefaultExecutor falls back to
// the software executor.
//
// Usage:
//
//	import _ "github.com/gogpu/adjust/gpu" // enable GPU adjustment
//
// Applications that already own a GPU device (e.g. a gogpu window) can
// share it instead of letting the executor open a second one:
//
//	gpu.SetDeviceProvider(ctx) // ctx is a gogpu context
package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/adjust"
	gpuimpl "github.com/gogpu/adjust/internal/gpu"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// DeviceHandle provides GPU device access from the host application.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// interface an adjust-specific name while staying compatible with the
// gpucontext ecosystem. Providers that also expose HalDevice()/HalQueue()
// let the executor run on the shared device.
type DeviceHandle = gpucontext.DeviceProvider

var (
	sharedMu     sync.Mutex
	sharedDevice hal.Device
	sharedQueue  hal.Queue
)

func init() {
	adjust.RegisterExecutor(adjust.ExecutorWGPU, newExecutor)
}

// newExecutor builds a GPU executor, on the shared device when one has
// been injected, otherwise on a device of its own.
func newExecutor() (adjust.Executor, error) {
	sharedMu.Lock()
	device, queue := sharedDevice, sharedQueue
	sharedMu.Unlock()

	if device != nil && queue != nil {
		return gpuimpl.NewWithDevice(device, queue)
	}
	return gpuimpl.New()
}

// SetDevice injects a HAL device and queue for all executors created after
// the call. Executors built on an injected device never destroy it; the
// caller keeps ownership. Passing nil for both restores self-owned device
// creation.
func SetDevice(device hal.Device, queue hal.Queue) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedDevice, sharedQueue = device, queue
}

// SetDeviceProvider configures executors to run on a shared GPU device from
// an external provider (e.g. a gogpu context). This avoids creating a
// second GPU instance next to the host application's.
//
// The provider must expose HalDevice() any and HalQueue() any returning
// wgpu/hal types; gogpu contexts do.
func SetDeviceProvider(provider DeviceHandle) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("%w: provider does not expose HAL types", adjust.ErrDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("%w: provider HalDevice is not hal.Device", adjust.ErrDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("%w: provider HalQueue is not hal.Queue", adjust.ErrDevice)
	}

	SetDevice(device, queue)
	return nil
}
