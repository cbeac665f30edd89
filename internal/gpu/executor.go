// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu implements the WebGPU compute executor. It uploads the image
// into a storage buffer, dispatches the adjust kernel over a grid of 16x16
// workgroups, and reads the result back through a staging buffer.
//
// The kernel WGSL lives in shaders/adjust.wgsl and is compiled to SPIR-V
// through naga at executor construction.
package gpu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/adjust"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// workgroupSize is the kernel workgroup edge. Must match @workgroup_size
// in shaders/adjust.wgsl.
const workgroupSize = 16

// fenceTimeout bounds how long a dispatch waits for the GPU.
const fenceTimeout = 5 * time.Second

// Executor runs the adjustment kernel on a WebGPU device via wgpu/hal.
// Construction compiles the kernel and builds the compute pipeline once;
// Process only allocates the per-image buffers.
//
// Dispatches are serialized on an internal mutex, so a single Executor is
// safe for concurrent use.
type Executor struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	// externalDevice is true when the device is shared with the host
	// application; Close must not destroy resources it does not own.
	externalDevice bool
	closed         bool
}

var _ adjust.Executor = (*Executor)(nil)

// New creates an executor on its own GPU device, selecting a discrete or
// integrated adapter from the Vulkan backend. Errors wrap
// adjust.ErrDevice; a machine without a usable GPU reports one here and
// the caller falls back to the software executor.
func New() (*Executor, error) {
	e := &Executor{}
	if err := e.initDevice(); err != nil {
		e.releaseDevice()
		return nil, fmt.Errorf("%w: %w", adjust.ErrDevice, err)
	}
	if err := e.createPipeline(); err != nil {
		e.releaseDevice()
		return nil, fmt.Errorf("%w: %w", adjust.ErrDevice, err)
	}
	return e, nil
}

// NewWithDevice creates an executor on a device owned by the host
// application (for example a gogpu context). The executor never destroys
// the shared device; Close only releases the pipeline.
func NewWithDevice(device hal.Device, queue hal.Queue) (*Executor, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: nil device or queue", adjust.ErrDevice)
	}
	e := &Executor{
		device:         device,
		queue:          queue,
		externalDevice: true,
	}
	if err := e.createPipeline(); err != nil {
		return nil, fmt.Errorf("%w: %w", adjust.ErrDevice, err)
	}
	return e, nil
}

// Name returns the executor identifier.
func (e *Executor) Name() string {
	return adjust.ExecutorWGPU
}

// createPipeline compiles the kernel and builds the bind group layout,
// pipeline layout, and compute pipeline.
func (e *Executor) createPipeline() error {
	spirv, err := compileWGSL(adjustShaderWGSL)
	if err != nil {
		return err
	}

	shader, err := e.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "adjust_kernel",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	e.shader = shader

	bindLayout, err := e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "adjust_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	e.bindLayout = bindLayout

	pipeLayout, err := e.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "adjust_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{e.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	e.pipeLayout = pipeLayout

	pipeline, err := e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "adjust_pipeline",
		Layout:  e.pipeLayout,
		Compute: hal.ComputeState{Module: e.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	e.pipeline = pipeline

	return nil
}

// destroyPipeline releases the pipeline objects in reverse creation order.
func (e *Executor) destroyPipeline() {
	if e.device == nil {
		return
	}
	if e.pipeline != nil {
		e.device.DestroyComputePipeline(e.pipeline)
		e.pipeline = nil
	}
	if e.pipeLayout != nil {
		e.device.DestroyPipelineLayout(e.pipeLayout)
		e.pipeLayout = nil
	}
	if e.bindLayout != nil {
		e.device.DestroyBindGroupLayout(e.bindLayout)
		e.bindLayout = nil
	}
	if e.shader != nil {
		e.device.DestroyShaderModule(e.shader)
		e.shader = nil
	}
}

// Process applies p to every pixel of img on the GPU and returns the
// result as a new image. The raw RGBA bytes are the kernel's packed-u32
// texel layout, so upload and readback copy without conversion.
//
// The dispatch itself is not cancelable; ctx is checked before work
// starts, and the fence wait is bounded by an internal timeout.
func (e *Executor) Process(ctx context.Context, img *adjust.Image, p adjust.Params) (*adjust.Image, error) {
	if img == nil {
		return nil, errors.New("adjust: nil image")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, adjust.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width, height := img.Width(), img.Height()
	if width == 0 || height == 0 {
		return adjust.NewImage(width, height), nil
	}
	bufSize := uint64(len(img.Pix()))

	inputBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "adjust_src", Size: bufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create source buffer: %w", adjust.ErrDevice, err)
	}
	defer e.device.DestroyBuffer(inputBuf)

	outputBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "adjust_dst", Size: bufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create output buffer: %w", adjust.ErrDevice, err)
	}
	defer e.device.DestroyBuffer(outputBuf)

	stagingBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "adjust_staging", Size: bufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create staging buffer: %w", adjust.ErrDevice, err)
	}
	defer e.device.DestroyBuffer(stagingBuf)

	uniformBuf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "adjust_params", Size: kernelParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create uniform buffer: %w", adjust.ErrDevice, err)
	}
	defer e.device.DestroyBuffer(uniformBuf)

	e.queue.WriteBuffer(inputBuf, 0, img.Pix())
	kp := kernelParams{
		brightness: p.Brightness,
		contrast:   p.Contrast,
		saturation: p.Saturation,
		width:      uint32(width),  //nolint:gosec // dimensions always fit uint32
		height:     uint32(height), //nolint:gosec // dimensions always fit uint32
	}
	e.queue.WriteBuffer(uniformBuf, 0, kp.bytes())

	bindGroup, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "adjust_bind",
		Layout: e.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: inputBuf.NativeHandle(), Offset: 0, Size: bufSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: outputBuf.NativeHandle(), Offset: 0, Size: bufSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: kernelParamsSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create bind group: %w", adjust.ErrDevice, err)
	}
	defer e.device.DestroyBindGroup(bindGroup)

	if err := e.encodeAndSubmit(bindGroup, outputBuf, stagingBuf, uint32(width), uint32(height), bufSize); err != nil { //nolint:gosec // dimensions always fit uint32
		return nil, err
	}

	readback := make([]byte, bufSize)
	if err := e.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("%w: readback: %w", adjust.ErrDevice, err)
	}
	out, err := adjust.NewImageFromPix(width, height, readback)
	if err != nil {
		return nil, err
	}

	adjust.Logger().Debug("adjust: gpu dispatch completed",
		"width", width, "height", height,
		"workgroups_x", (width+workgroupSize-1)/workgroupSize,
		"workgroups_y", (height+workgroupSize-1)/workgroupSize)
	return out, nil
}

// encodeAndSubmit records the compute pass plus the readback copy, submits
// the command buffer, and blocks until the fence signals.
func (e *Executor) encodeAndSubmit(bindGroup hal.BindGroup, outputBuf, stagingBuf hal.Buffer, width, height uint32, size uint64) error {
	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "adjust_encoder",
	})
	if err != nil {
		return fmt.Errorf("%w: create command encoder: %w", adjust.ErrDevice, err)
	}
	if err := encoder.BeginEncoding("adjust"); err != nil {
		return fmt.Errorf("%w: begin encoding: %w", adjust.ErrDevice, err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "adjust_pass"})
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch((width+workgroupSize-1)/workgroupSize, (height+workgroupSize-1)/workgroupSize, 1)
	pass.End()

	encoder.CopyBufferToBuffer(outputBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("%w: end encoding: %w", adjust.ErrDevice, err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	fence, err := e.device.CreateFence()
	if err != nil {
		return fmt.Errorf("%w: create fence: %w", adjust.ErrDevice, err)
	}
	defer e.device.DestroyFence(fence)

	if err := e.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("%w: submit: %w", adjust.ErrDevice, err)
	}

	ok, err := e.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("%w: wait for GPU: %w", adjust.ErrDevice, err)
	}
	if !ok {
		return fmt.Errorf("%w: GPU timeout after %v", adjust.ErrDevice, fenceTimeout)
	}
	return nil
}

// Close releases the pipeline and, when the executor owns them, the device
// and instance. Close is idempotent.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	e.destroyPipeline()
	e.releaseDevice()
	return nil
}
