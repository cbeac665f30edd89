package adjust

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gogpu/adjust/internal/parallel"
	"github.com/gogpu/adjust/internal/tile"
)

// SoftwareExecutor is the pure-Go CPU executor. It mirrors the GPU kernel
// exactly: pixels are unpacked to [0, 1] floats, adjusted with AdjustColor,
// and packed back with round-to-nearest, so both executors produce
// byte-identical output.
//
// Work is split into 16x16 pixel tiles processed on a worker pool, the
// same subdivision the GPU kernel uses for its workgroups.
type SoftwareExecutor struct {
	pool   *parallel.WorkerPool
	closed atomic.Bool
}

// init registers the software executor on package import. It is the
// universal fallback: construction never fails.
func init() {
	RegisterExecutor(ExecutorSoftware, func() (Executor, error) {
		return NewSoftwareExecutor(), nil
	})
}

// NewSoftwareExecutor creates a software executor with one worker per CPU.
func NewSoftwareExecutor() *SoftwareExecutor {
	return &SoftwareExecutor{
		pool: parallel.NewWorkerPool(0),
	}
}

// Name returns the executor identifier.
func (e *SoftwareExecutor) Name() string {
	return ExecutorSoftware
}

// Process applies p to every pixel of img and returns the result as a new
// image. The input is never modified. On cancellation no partial result
// escapes: the output image is dropped and ctx.Err() is returned.
func (e *SoftwareExecutor) Process(ctx context.Context, img *Image, p Params) (*Image, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if img == nil {
		return nil, errors.New("adjust: nil image")
	}

	width, height := img.Width(), img.Height()
	out := NewImage(width, height)
	if width == 0 || height == 0 {
		return out, nil
	}

	src := img.pix
	dst := out.pix

	tiles := tile.Tiles(width, height)
	work := make([]func(), len(tiles))
	for i, t := range tiles {
		work[i] = func() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			x0, y0, x1, y1 := t.Clip(width, height)
			for y := y0; y < y1; y++ {
				off := (y*width + x0) * 4
				for x := x0; x < x1; x++ {
					c := AdjustColor(RGBA{
						R: float32(src[off+0]) / 255,
						G: float32(src[off+1]) / 255,
						B: float32(src[off+2]) / 255,
						A: float32(src[off+3]) / 255,
					}, p)
					dst[off+0] = pix8(c.R)
					dst[off+1] = pix8(c.G)
					dst[off+2] = pix8(c.B)
					dst[off+3] = pix8(c.A)
					off += 4
				}
			}
		}
	}

	if err := e.pool.ExecuteAll(ctx, work); err != nil {
		if errors.Is(err, parallel.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return out, nil
}

// Close releases the worker pool. Close is idempotent.
func (e *SoftwareExecutor) Close() error {
	if e.closed.CompareAndSwap(false, true) {
		e.pool.Close()
	}
	return nil
}
