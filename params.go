package adjust

// Params holds the three adjustment parameters. Params is a value object:
// pass it by value, compare it with ==.
//
// The recognized ranges are Brightness in [-1, 1], Contrast in [0.5, 2] and
// Saturation in [0, 2]. The pipeline does not enforce them: out-of-range
// values flow through the kernel unchanged, and the result saturates only
// at the final 8-bit conversion. Callers that want the documented ranges
// enforced apply Clamp first.
type Params struct {
	// Brightness is an additive per-channel offset. 0 is neutral.
	Brightness float32

	// Contrast is a multiplicative gain around mid-gray 0.5. 1 is neutral.
	Contrast float32

	// Saturation is a multiplicative gain around the per-pixel BT.709
	// luminance. 0 yields grayscale, 1 is neutral, values above 1
	// oversaturate by extrapolation.
	Saturation float32
}

// DefaultParams returns the identity parameters (0, 1, 1): a run with them
// reproduces the input image.
func DefaultParams() Params {
	return Params{Brightness: 0, Contrast: 1, Saturation: 1}
}

// IsIdentity reports whether p equals the identity parameters.
func (p Params) IsIdentity() bool {
	return p == DefaultParams()
}

// Clamp returns a copy of p with each parameter clamped to its recognized
// range.
func (p Params) Clamp() Params {
	return Params{
		Brightness: clampf(p.Brightness, -1, 1),
		Contrast:   clampf(p.Contrast, 0.5, 2),
		Saturation: clampf(p.Saturation, 0, 2),
	}
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
