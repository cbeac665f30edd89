package adjust

// RGBA is a normalized color with float32 components. Channel values are
// nominally in [0, 1] but the kernel does not clamp: out-of-range values
// survive until the 8-bit conversion saturates them.
type RGBA struct {
	R, G, B, A float32
}

// BT.709 luma weights used by the saturation stage. These match the
// constants in the compute shader exactly.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// Luminance returns the BT.709 luminance of c: 0.2126*R + 0.7152*G + 0.0722*B.
func Luminance(c RGBA) float32 {
	return lumaR*c.R + lumaG*c.G + lumaB*c.B
}

// AdjustColor applies the three adjustments to a single color, in fixed
// order: brightness, then contrast, then saturation. Reordering changes
// results. Alpha passes through untouched.
//
// No stage clamps its output. With identity parameters (0, 1, 1) the input
// is returned unchanged up to float32 rounding in the contrast stage.
// AdjustColor is a pure function of its inputs and is the single source of
// truth for the transform; the compute shader implements the same
// arithmetic on the GPU.
func AdjustColor(c RGBA, p Params) RGBA {
	r := c.R + p.Brightness
	g := c.G + p.Brightness
	b := c.B + p.Brightness

	r = (r-0.5)*p.Contrast + 0.5
	g = (g-0.5)*p.Contrast + 0.5
	b = (b-0.5)*p.Contrast + 0.5

	// Saturation blends between the achromatic color (L, L, L) and the
	// contrast-stage color. The lerp form a*(1-t) + b*t is the WGSL mix
	// definition and is exact at t=0 and t=1.
	l := lumaR*r + lumaG*g + lumaB*b
	r = lerp(l, r, p.Saturation)
	g = lerp(l, g, p.Saturation)
	b = lerp(l, b, p.Saturation)

	return RGBA{R: r, G: g, B: b, A: c.A}
}

func lerp(a, b, t float32) float32 {
	return a*(1-t) + b*t
}
