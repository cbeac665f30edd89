package adjust

import (
	"fmt"
	"image"
	"image/color"
)

// Image represents a rectangular pixel buffer in RGBA8888 layout: four
// bytes per pixel, row-major, no padding between rows. Alpha is straight
// (non-premultiplied), matching what image decoders produce for PNG.
//
// The raw byte layout is identical to the storage buffers the GPU kernel
// reads and writes, so uploads and readbacks copy pixel data without any
// conversion step.
type Image struct {
	width  int
	height int
	pix    []uint8 // RGBA, 4 bytes per pixel, stride = width*4
}

// NewImage creates a new image with the given dimensions. All pixels are
// transparent black. Dimensions of zero or less produce an empty image.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*4),
	}
}

// NewImageFromPix wraps an existing RGBA byte buffer into an Image without
// copying. The buffer must be exactly width*height*4 bytes; a mismatch
// returns an error wrapping ErrEncode. The image takes ownership of pix.
func NewImageFromPix(width, height int, pix []uint8) (*Image, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %dx%d", ErrEncode, width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: buffer is %d bytes, want %d for %dx%d",
			ErrEncode, len(pix), width*height*4, width, height)
	}
	return &Image{
		width:  width,
		height: height,
		pix:    pix,
	}, nil
}

// FromImage converts any image.Image into an Image. *image.NRGBA sources
// are copied row by row without conversion; everything else goes through
// the color model, which is slower but handles arbitrary source formats.
func FromImage(src image.Image) *Image {
	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	img := NewImage(width, height)

	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			si := s.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(img.pix[y*width*4:(y+1)*width*4], s.Pix[si:si+width*4])
		}
	default:
		i := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
				img.pix[i+0] = c.R
				img.pix[i+1] = c.G
				img.pix[i+2] = c.B
				img.pix[i+3] = c.A
				i += 4
			}
		}
	}
	return img
}

// Width returns the width of the image in pixels.
func (p *Image) Width() int {
	return p.width
}

// Height returns the height of the image in pixels.
func (p *Image) Height() int {
	return p.height
}

// Pix returns the raw pixel data (RGBA format, 4 bytes per pixel). The
// slice is the image's backing store, not a copy: writes through it are
// visible to subsequent reads.
func (p *Image) Pix() []uint8 {
	return p.pix
}

// Clone returns a deep copy of the image.
func (p *Image) Clone() *Image {
	c := &Image{
		width:  p.width,
		height: p.height,
		pix:    make([]uint8, len(p.pix)),
	}
	copy(c.pix, p.pix)
	return c
}

// SetPixel sets the color of a single pixel. Channels are clamped to
// [0, 1] and rounded to the nearest 8-bit value. Out-of-bounds
// coordinates are ignored.
func (p *Image) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.pix[i+0] = pix8(c.R)
	p.pix[i+1] = pix8(c.G)
	p.pix[i+2] = pix8(c.B)
	p.pix[i+3] = pix8(c.A)
}

// GetPixel returns the color of a single pixel with channels in [0, 1].
// Out-of-bounds coordinates return transparent black.
func (p *Image) GetPixel(x, y int) RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return RGBA{}
	}
	i := (y*p.width + x) * 4
	return RGBA{
		R: float32(p.pix[i+0]) / 255,
		G: float32(p.pix[i+1]) / 255,
		B: float32(p.pix[i+2]) / 255,
		A: float32(p.pix[i+3]) / 255,
	}
}

// ToImage converts the image to an *image.NRGBA sharing no memory with
// the receiver. The byte layouts are identical, so the conversion is a
// single copy.
func (p *Image) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.pix)
	return img
}

// At implements the image.Image interface.
func (p *Image) At(x, y int) color.Color {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.NRGBA{}
	}
	i := (y*p.width + x) * 4
	return color.NRGBA{R: p.pix[i+0], G: p.pix[i+1], B: p.pix[i+2], A: p.pix[i+3]}
}

// Bounds implements the image.Image interface.
func (p *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

// pix8 quantizes a [0, 1] channel value to 8 bits: clamp, then round to
// nearest. The shader's pack_rgba spells out the same clamp, scale and
// truncate sequence, so the software and GPU executors produce identical
// bytes.
func pix8(v float32) uint8 {
	v = clampf(v, 0, 1)
	return uint8(v*255 + 0.5)
}
