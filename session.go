package adjust

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/adjust/internal/imageio"
)

// Session is an editing session over a single source image. It decodes the
// source once, keeps the decoded original immutable, and applies parameter
// runs against it: every Run processes the original, never the previous
// result, so repeated slider changes do not accumulate rounding error.
//
// Runs execute asynchronously. Each run gets a monotonically increasing
// sequence number, and the session keeps the result of the highest
// completed sequence: when an older run finishes after a newer one, its
// result is discarded. This gives interactive callers last-write-wins
// semantics without any queuing on their side.
//
// All methods are safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	source    []byte // encoded bytes the session was created from
	original  *Image // decoded once, never modified
	exec      Executor
	ownsExec  bool // Close closes exec only when the session created it
	closed    bool
	nextSeq   uint64 // last issued run id
	completed uint64 // highest run id whose result was accepted
	current   *Image
	applied   Params
	hasResult bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession decodes source and creates a session over it. The bytes are
// copied, so the caller may reuse the buffer. Decoding failures return an
// error wrapping ErrDecode.
//
// Without options the session uses DefaultExecutor. WithExecutor injects
// a shared instance; WithExecutorName constructs a specific registered
// executor owned by the session.
func NewSession(source []byte, opts ...SessionOption) (*Session, error) {
	o := defaultSessionOptions()
	for _, opt := range opts {
		opt(&o)
	}

	src, err := imageio.Decode(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if src.Bounds().Dx() == 0 || src.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("%w: image has zero dimensions", ErrDecode)
	}

	exec := o.executor
	ownsExec := false
	if exec == nil {
		if o.name != "" {
			exec, err = NewExecutor(o.name)
		} else {
			exec, err = DefaultExecutor()
		}
		if err != nil {
			return nil, err
		}
		ownsExec = true
	}

	data := make([]byte, len(source))
	copy(data, source)

	original := FromImage(src)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		source:   data,
		original: original,
		exec:     exec,
		ownsExec: ownsExec,
		ctx:      ctx,
		cancel:   cancel,
	}
	Logger().Debug("adjust: session created",
		"width", original.Width(),
		"height", original.Height(),
		"executor", exec.Name())
	return s, nil
}

// Original returns the decoded source image. Runs read it concurrently,
// so callers must not modify it.
func (s *Session) Original() *Image {
	return s.original
}

// ExecutorName returns the name of the executor backing this session.
func (s *Session) ExecutorName() string {
	return s.exec.Name()
}

// Run starts an asynchronous processing run applying p to the original
// image and returns immediately. The returned Pending completes when the
// run finishes.
//
// If a run issued later completes first, this run's result is discarded:
// Pending.Applied reports false and the session's current image is left
// untouched. Failed runs never overwrite the current image either.
//
// Run on a closed session returns an already-completed Pending carrying
// ErrClosed.
func (s *Session) Run(p Params) *Pending {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		pend := &Pending{done: make(chan struct{}), err: ErrClosed}
		close(pend.done)
		return pend
	}
	s.nextSeq++
	seq := s.nextSeq
	exec, img, ctx := s.exec, s.original, s.ctx
	s.mu.Unlock()

	pend := &Pending{seq: seq, done: make(chan struct{})}
	go func() {
		defer close(pend.done)

		out, err := exec.Process(ctx, img, p)
		if err != nil {
			// A run overtaken by Close reports the cancellation, not the
			// executor's own shutdown error.
			if cerr := ctx.Err(); cerr != nil {
				err = cerr
			}
			pend.err = err
			Logger().Warn("adjust: run failed", "seq", seq, "error", err)
			return
		}

		s.mu.Lock()
		if !s.closed && seq > s.completed {
			s.completed = seq
			s.current = out
			s.applied = p
			s.hasResult = true
			pend.applied = true
		}
		s.mu.Unlock()
		pend.img = out

		Logger().Debug("adjust: run completed",
			"seq", seq, "applied", pend.applied)
	}()
	return pend
}

// Current returns the most recent accepted result and the parameters that
// produced it. ok is false when no run has completed since creation or
// the last Reset.
func (s *Session) Current() (img *Image, p Params, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.applied, s.hasResult
}

// Reset discards the current result and invalidates all in-flight runs,
// returning the session to its just-decoded state. It returns a copy of
// the encoded bytes the session was created from.
func (s *Session) Reset() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = s.nextSeq // everything already issued becomes stale
	s.current = nil
	s.applied = Params{}
	s.hasResult = false
	src := make([]byte, len(s.source))
	copy(src, s.source)
	return src
}

// Close cancels in-flight runs, which complete with context.Canceled, and
// releases the session. The executor is closed only if the session created
// it. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()
	s.current = nil
	s.hasResult = false
	exec, owns := s.exec, s.ownsExec
	s.mu.Unlock()

	if owns {
		return exec.Close()
	}
	return nil
}

// Pending is a handle to an asynchronous processing run. It completes at
// most once; all accessors block until then.
type Pending struct {
	seq     uint64
	done    chan struct{}
	img     *Image
	err     error
	applied bool
}

// Seq returns the run's sequence number within its session.
func (p *Pending) Seq() uint64 {
	return p.seq
}

// Done returns a channel closed when the run completes. Use it to select
// across multiple runs or combine with timeouts.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the run completes and returns its output. The image
// is this run's own result even when a newer run superseded it; check
// Applied to know whether it became the session's current image.
func (p *Pending) Result() (*Image, error) {
	<-p.done
	return p.img, p.err
}

// Applied blocks until the run completes and reports whether its result
// became the session's current image. It is false when the run failed,
// when a newer run completed first, or when the session was reset or
// closed before completion.
func (p *Pending) Applied() bool {
	<-p.done
	return p.applied
}
