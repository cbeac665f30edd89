package adjust

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
)

// encodeTestPNG returns PNG bytes for a small deterministic image.
func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 50),
				G: uint8(y * 70),
				B: uint8(x*x + y),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// gateCall is one Process invocation held open by gateExecutor until the
// test releases it.
type gateCall struct {
	params  Params
	proceed chan struct{}
}

// gateExecutor blocks every Process call until the test explicitly
// releases it, making completion order fully deterministic.
type gateExecutor struct {
	calls chan *gateCall
}

func newGateExecutor() *gateExecutor {
	return &gateExecutor{calls: make(chan *gateCall, 8)}
}

func (g *gateExecutor) Name() string { return "gate" }

func (g *gateExecutor) Process(ctx context.Context, _ *Image, p Params) (*Image, error) {
	call := &gateCall{params: p, proceed: make(chan struct{})}
	g.calls <- call
	select {
	case <-call.proceed:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// Tag the output with the brightness so tests can tell runs apart.
	out := NewImage(1, 1)
	out.Pix()[0] = uint8(p.Brightness)
	return out, nil
}

func (g *gateExecutor) Close() error { return nil }

// shutdownExecutor blocks Process until released and fails with ErrClosed
// once its Close has run, the way a session-owned executor shuts down.
type shutdownExecutor struct {
	entered chan struct{}
	release chan struct{}
	closed  atomic.Bool
}

func newShutdownExecutor() *shutdownExecutor {
	return &shutdownExecutor{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (e *shutdownExecutor) Name() string { return "shutdown" }

func (e *shutdownExecutor) Process(_ context.Context, img *Image, _ Params) (*Image, error) {
	close(e.entered)
	<-e.release
	if e.closed.Load() {
		return nil, ErrClosed
	}
	return img.Clone(), nil
}

func (e *shutdownExecutor) Close() error {
	e.closed.Store(true)
	return nil
}

// failExecutor fails every Process call.
type failExecutor struct{ err error }

func (f *failExecutor) Name() string { return "fail" }

func (f *failExecutor) Process(context.Context, *Image, Params) (*Image, error) {
	return nil, f.err
}

func (f *failExecutor) Close() error { return nil }

func TestNewSessionDecodeError(t *testing.T) {
	for _, src := range [][]byte{nil, {}, []byte("not an image")} {
		_, err := NewSession(src, WithExecutor(&fakeExecutor{name: "fake"}))
		if !errors.Is(err, ErrDecode) {
			t.Errorf("NewSession(%q) error = %v, want ErrDecode", src, err)
		}
	}
}

func TestNewSessionDefaultsToSoftware(t *testing.T) {
	s, err := NewSession(encodeTestPNG(t, 4, 4))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	if s.ExecutorName() != ExecutorSoftware {
		t.Errorf("ExecutorName() = %q, want %q", s.ExecutorName(), ExecutorSoftware)
	}
}

func TestNewSessionWithExecutorName(t *testing.T) {
	fake := &fakeExecutor{name: "session-owned"}
	RegisterExecutor("session-owned", func() (Executor, error) {
		return fake, nil
	})
	t.Cleanup(func() { UnregisterExecutor("session-owned") })

	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutorName("session-owned"))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if s.ExecutorName() != "session-owned" {
		t.Errorf("ExecutorName() = %q, want %q", s.ExecutorName(), "session-owned")
	}

	// The session constructed the executor, so Close must close it.
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fake.closed {
		t.Error("Close() did not close the session-owned executor")
	}
}

func TestNewSessionWithExecutorNameUnknown(t *testing.T) {
	_, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutorName("no-such-executor"))
	if !errors.Is(err, ErrNoExecutor) {
		t.Errorf("NewSession() error = %v, want ErrNoExecutor", err)
	}
}

func TestNewSessionInjectedExecutorNotOwned(t *testing.T) {
	fake := &fakeExecutor{name: "shared"}
	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(fake))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if fake.closed {
		t.Error("Close() closed an injected executor; ownership stays with the caller")
	}
}

func TestSessionRunIdentity(t *testing.T) {
	exec := NewSoftwareExecutor()
	defer exec.Close()

	s, err := NewSession(encodeTestPNG(t, 9, 6), WithExecutor(exec))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	pend := s.Run(DefaultParams())
	out, err := pend.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if !pend.Applied() {
		t.Error("sole run must be applied")
	}
	if !bytes.Equal(out.Pix(), s.Original().Pix()) {
		t.Error("identity run must reproduce the decoded original byte for byte")
	}

	cur, p, ok := s.Current()
	if !ok {
		t.Fatal("Current() not ok after a completed run")
	}
	if cur != out {
		t.Error("Current() image is not the run result")
	}
	if !p.IsIdentity() {
		t.Errorf("Current() params = %+v, want identity", p)
	}
}

func TestSessionSeqMonotonic(t *testing.T) {
	g := newGateExecutor()
	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(g))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	r1 := s.Run(Params{Brightness: 1, Contrast: 1, Saturation: 1})
	r2 := s.Run(Params{Brightness: 2, Contrast: 1, Saturation: 1})
	if r1.Seq() >= r2.Seq() {
		t.Errorf("sequence not monotonic: %d then %d", r1.Seq(), r2.Seq())
	}

	close((<-g.calls).proceed)
	close((<-g.calls).proceed)
	r1.Result()
	r2.Result()
}

func TestSessionLastCompletedWins(t *testing.T) {
	g := newGateExecutor()
	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(g))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	p1 := Params{Brightness: 10, Contrast: 1, Saturation: 1}
	p2 := Params{Brightness: 20, Contrast: 1, Saturation: 1}

	r1 := s.Run(p1)
	call1 := <-g.calls
	r2 := s.Run(p2)
	call2 := <-g.calls

	// The newer run finishes first and becomes current.
	close(call2.proceed)
	if _, err := r2.Result(); err != nil {
		t.Fatalf("run 2 Result() error = %v", err)
	}
	if !r2.Applied() {
		t.Error("newest completed run must be applied")
	}

	// The older run finishes afterwards; its result must be discarded.
	close(call1.proceed)
	out1, err := r1.Result()
	if err != nil {
		t.Fatalf("run 1 Result() error = %v", err)
	}
	if out1 == nil {
		t.Fatal("stale run still returns its own result")
	}
	if r1.Applied() {
		t.Error("stale run must not be applied")
	}

	cur, p, ok := s.Current()
	if !ok {
		t.Fatal("Current() not ok")
	}
	if cur.Pix()[0] != 20 {
		t.Errorf("current image tagged %d, want 20 (newest run)", cur.Pix()[0])
	}
	if p != p2 {
		t.Errorf("current params = %+v, want %+v", p, p2)
	}
}

func TestSessionErrorKeepsCurrent(t *testing.T) {
	g := newGateExecutor()
	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(g))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	p1 := Params{Brightness: 10, Contrast: 1, Saturation: 1}
	r1 := s.Run(p1)
	close((<-g.calls).proceed)
	if _, err := r1.Result(); err != nil {
		t.Fatalf("run 1 Result() error = %v", err)
	}

	// Swap in a failing executor path: run 2 fails.
	wantErr := errors.New("device lost")
	s2, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(&failExecutor{err: wantErr}))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s2.Close()

	// Failing run on a session with no current image: stays empty.
	rf := s2.Run(p1)
	if _, err := rf.Result(); !errors.Is(err, wantErr) {
		t.Fatalf("Result() error = %v, want %v", err, wantErr)
	}
	if rf.Applied() {
		t.Error("failed run must not be applied")
	}
	if _, _, ok := s2.Current(); ok {
		t.Error("failed run must not set a current image")
	}

	// And on the first session, current is still run 1's result.
	cur, p, ok := s.Current()
	if !ok || cur.Pix()[0] != 10 || p != p1 {
		t.Errorf("Current() = tag %d, %+v, %v; want 10, %+v, true", cur.Pix()[0], p, ok, p1)
	}
}

func TestSessionReset(t *testing.T) {
	source := encodeTestPNG(t, 5, 5)
	g := newGateExecutor()
	s, err := NewSession(source, WithExecutor(g))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	r := s.Run(Params{Brightness: 10, Contrast: 1, Saturation: 1})
	close((<-g.calls).proceed)
	r.Result()

	got := s.Reset()
	if !bytes.Equal(got, source) {
		t.Error("Reset() did not return the original encoded bytes")
	}
	if _, _, ok := s.Current(); ok {
		t.Error("Current() still ok after Reset")
	}
}

func TestSessionResetInvalidatesInFlight(t *testing.T) {
	g := newGateExecutor()
	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(g))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	r := s.Run(Params{Brightness: 10, Contrast: 1, Saturation: 1})
	call := <-g.calls // the run is in flight
	s.Reset()
	close(call.proceed)

	if _, err := r.Result(); err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if r.Applied() {
		t.Error("run completing after Reset must not be applied")
	}
	if _, _, ok := s.Current(); ok {
		t.Error("Current() ok after Reset invalidated the in-flight run")
	}
}

func TestSessionCloseCancelsInFlight(t *testing.T) {
	g := newGateExecutor()
	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(g))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	r := s.Run(Params{Brightness: 10, Contrast: 1, Saturation: 1})
	<-g.calls // in flight, never released

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := r.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("Result() error = %v, want context.Canceled", err)
	}
	if r.Applied() {
		t.Error("canceled run must not be applied")
	}
}

func TestSessionCloseReportsCancellation(t *testing.T) {
	exec := newShutdownExecutor()
	RegisterExecutor("shutdown", func() (Executor, error) { return exec, nil })
	t.Cleanup(func() { UnregisterExecutor("shutdown") })

	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutorName("shutdown"))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	r := s.Run(Params{Brightness: 10, Contrast: 1, Saturation: 1})
	<-exec.entered

	// Close shuts the owned executor down while the run is still inside
	// Process; the run must surface the cancellation, not ErrClosed.
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	close(exec.release)

	_, runErr := r.Result()
	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("Result() error = %v, want context.Canceled", runErr)
	}
	if errors.Is(runErr, ErrClosed) {
		t.Error("run surfaced the executor shutdown instead of the cancellation")
	}
	if r.Applied() {
		t.Error("run completing after Close must not be applied")
	}
}

func TestSessionRunAfterClose(t *testing.T) {
	s, err := NewSession(encodeTestPNG(t, 2, 2), WithExecutor(&fakeExecutor{name: "fake"}))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	r := s.Run(DefaultParams())
	if _, err := r.Result(); !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close: error = %v, want ErrClosed", err)
	}
	if r.Applied() {
		t.Error("run on closed session must not be applied")
	}
}

func TestSessionOriginal(t *testing.T) {
	s, err := NewSession(encodeTestPNG(t, 7, 3), WithExecutor(&fakeExecutor{name: "fake"}))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	if s.Original().Width() != 7 || s.Original().Height() != 3 {
		t.Errorf("Original() = %dx%d, want 7x3",
			s.Original().Width(), s.Original().Height())
	}
}

func TestSessionResetCopiesSource(t *testing.T) {
	source := encodeTestPNG(t, 3, 3)
	s, err := NewSession(source, WithExecutor(&fakeExecutor{name: "fake"}))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	// Corrupt the returned bytes; later Resets must be unaffected.
	first := s.Reset()
	for i := range first {
		first[i] = 0
	}
	if !bytes.Equal(s.Reset(), source) {
		t.Error("Reset() shares its returned buffer across calls")
	}
}

func TestSessionSourceCopied(t *testing.T) {
	source := encodeTestPNG(t, 2, 2)
	s, err := NewSession(source, WithExecutor(&fakeExecutor{name: "fake"}))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer s.Close()

	// Corrupt the caller's buffer; the session must be unaffected.
	want := make([]byte, len(source))
	copy(want, source)
	for i := range source {
		source[i] = 0
	}
	if !bytes.Equal(s.Reset(), want) {
		t.Error("session shares the caller's source buffer")
	}
}
