// Package tile partitions an image into the fixed 16x16 blocks the
// adjustment kernel is dispatched over.
//
// The grid always covers the full image: when the image dimensions are not
// multiples of the tile size, the last row and column of tiles overhang the
// image edge. Overhanging invocations are discarded by the kernel's own
// bounds check, so the partitioner never shrinks edge tiles; Clip exists
// for CPU executors that iterate pixels directly.
package tile

// Size is the tile edge length in pixels on both axes. It matches the
// compute shader's workgroup size, so one tile is one workgroup.
const Size = 16

// Tile identifies one 16x16 block by its top-left pixel coordinate.
type Tile struct {
	// X is the left edge in pixels (a multiple of Size).
	X int

	// Y is the top edge in pixels (a multiple of Size).
	Y int
}

// Grid returns the number of tile columns and rows needed to cover a
// width x height image, by ceiling division. Zero or negative dimensions
// yield an empty grid.
func Grid(width, height int) (nx, ny int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	return (width + Size - 1) / Size, (height + Size - 1) / Size
}

// Tiles returns the tile origins covering a width x height image in
// row-major order. The returned slice is empty for degenerate dimensions.
func Tiles(width, height int) []Tile {
	nx, ny := Grid(width, height)
	if nx == 0 {
		return nil
	}

	tiles := make([]Tile, 0, nx*ny)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			tiles = append(tiles, Tile{X: tx * Size, Y: ty * Size})
		}
	}
	return tiles
}

// Clip returns the pixel rectangle of t that lies inside a width x height
// image, as half-open bounds [x0, x1) x [y0, y1). Fully overhanging tiles
// yield an empty rectangle (x0 == x1 or y0 == y1).
func (t Tile) Clip(width, height int) (x0, y0, x1, y1 int) {
	x0, y0 = t.X, t.Y
	x1, y1 = t.X+Size, t.Y+Size
	if x1 > width {
		x1 = width
	}
	if y1 > height {
		y1 = height
	}
	if x0 > x1 {
		x0 = x1
	}
	if y0 > y1 {
		y0 = y1
	}
	return x0, y0, x1, y1
}
