// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"
)

// kernelParamsSize is the byte size of the kernel uniform buffer.
// Layout: three f32 factors + f32 padding (16 bytes), then width and
// height as u32 + 8 bytes padding (16 bytes).
const kernelParamsSize = 32

// kernelParams mirrors struct Params in shaders/adjust.wgsl.
type kernelParams struct {
	brightness float32
	contrast   float32
	saturation float32
	width      uint32
	height     uint32
}

// bytes serializes the uniform block in the little-endian layout the
// shader expects.
func (p kernelParams) bytes() []byte {
	buf := make([]byte, kernelParamsSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p.brightness))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.contrast))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p.saturation))
	binary.LittleEndian.PutUint32(buf[16:], p.width)
	binary.LittleEndian.PutUint32(buf[20:], p.height)
	return buf
}
