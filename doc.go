// Package adjust provides GPU-accelerated per-pixel image adjustments for Go.
//
// # Overview
//
// adjust applies brightness, contrast and saturation to an image by running
// a per-pixel compute kernel over every pixel in parallel. It is part of the
// GoGPU ecosystem: the GPU path runs on gogpu/wgpu compute shaders in pure
// Go, and a tile-parallel CPU executor with identical numerics is always
// available as a fallback.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/adjust"
//	    _ "github.com/gogpu/adjust/gpu" // enable the wgpu executor
//	)
//
//	data, _ := os.ReadFile("photo.png")
//
//	session, err := adjust.NewSession(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	pending := session.Run(adjust.Params{Brightness: 0.1, Contrast: 1.2, Saturation: 0.9})
//	img, err := pending.Result()
//
// # Pipeline
//
// The source bytes are decoded once, when the session is created. A Run
// then performs one full pass over the decoded original: upload the pixels
// to the executor's input surface, run the kernel across the image in 16x16
// tiles, read the result back and wrap it into a new Image. Each pass is
// all-or-nothing: a failed run surfaces a typed error (ErrDecode, ErrDevice,
// ErrEncode) and never a partial image.
//
// Runs may overlap. Each one carries a monotonic sequence number and the
// session applies completions in sequence order: a slow, superseded run
// still completes, but its result is discarded rather than overwriting a
// newer one.
//
// # Kernel
//
// The transform is applied in fixed order: brightness (additive per
// channel), contrast (gain around mid-gray 0.5), saturation (blend against
// the BT.709 luminance). Alpha is never touched. Channel values are not
// clamped between stages; the single clamp happens when the result is
// converted back to 8-bit, matching the shader's saturate-on-pack.
//
// # Executors
//
// The software executor is registered by default. Importing the gpu
// subpackage registers the "wgpu" executor, which takes priority when a
// device can be opened; it can also share a device owned by the host
// application instead of creating its own.
package adjust
