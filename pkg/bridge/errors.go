package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no complete frame arrived before the deadline.
	// Every *TimeoutError matches it with errors.Is.
	ErrTimeout = errors.New("timeout waiting for response from peer module")
	// ErrMalformedFrame indicates a received frame is not UTF-8 JSON.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnsupportedType indicates a value is not one of
	// integer, floating point, boolean or string.
	ErrUnsupportedType = errors.New("unsupported value type")
	// ErrNoData is returned by transports when ReadByte is called
	// with nothing available.
	ErrNoData = errors.New("no data available")
)

// Stages at which a TimeoutError can happen.
const (
	StageFlush   = "flush"
	StageAwait   = "await"
	StageReceive = "receive"
)

// TimeoutError reports a deadline miss along with whatever bytes were
// accumulated before it.
type TimeoutError struct {
	Stage   string
	Partial []byte
}

// Error implements error.
func (e *TimeoutError) Error() string {
	if len(e.Partial) > 0 {
		return fmt.Sprintf("timed out in %s, received partial response [%q]", e.Stage, e.Partial)
	}
	return fmt.Sprintf("timed out in %s waiting for response from peer module", e.Stage)
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// FrameError wraps a decoding failure of a received frame.
type FrameError struct {
	Frame []byte
	Err   error
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("received string is not a json = %q: %v", e.Frame, e.Err)
}

// Unwrap returns the underlying decoding error.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedFrame) hold.
func (e *FrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

// PeerError wraps a non-success code from a response.
type PeerError struct {
	Code int
	Text string
}

// Error implements error.
func (e *PeerError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("peer error %d: %s", e.Code, e.Text)
	}
	return fmt.Sprintf("peer error %d", e.Code)
}
