package adjust

import "errors"

// Pipeline errors. Each failed run surfaces exactly one of the three
// pipeline kinds; the cause is chained and reachable through errors.Is and
// errors.As. A failure is terminal for the run that raised it: there are
// no retries and no partial results.
var (
	// ErrDecode is returned when the source bytes cannot be decoded into
	// a pixel grid, or decode to an image with zero dimensions.
	ErrDecode = errors.New("adjust: decode failed")

	// ErrDevice is returned when the executor is unavailable or an
	// upload, allocation, submission or readback fails.
	ErrDevice = errors.New("adjust: device failed")

	// ErrEncode is returned when the readback buffer does not match the
	// expected width*height*4 size.
	ErrEncode = errors.New("adjust: encode failed")

	// ErrClosed is returned when a session or executor is used after
	// Close.
	ErrClosed = errors.New("adjust: closed")

	// ErrNoExecutor is returned when no registered executor can be
	// constructed.
	ErrNoExecutor = errors.New("adjust: no executor available")
)
