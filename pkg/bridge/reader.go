package bridge

import "time"

// LineReader accumulates bytes from a Transport until a newline-terminated
// frame is complete. The accumulator never carries bytes across frames.
type LineReader struct {
	Transport Transport
	Poller    Poller

	buf []byte
}

// ReadFrame reads one frame which must complete within timeout.
func (r *LineReader) ReadFrame(timeout time.Duration) ([]byte, error) {
	return r.ReadFrameBefore(r.Poller.Clock.Now().Add(timeout))
}

// ReadFrameBefore reads one frame which must complete before deadline.
// The returned frame has its newline stripped. On timeout the partially
// accumulated bytes are reported in *TimeoutError and discarded.
func (r *LineReader) ReadFrameBefore(deadline time.Time) ([]byte, error) {
	r.buf = r.buf[:0]
	complete := r.Poller.Until(deadline, r.drain)
	frame := append([]byte(nil), r.buf...)
	r.buf = r.buf[:0]
	if !complete {
		return nil, &TimeoutError{Stage: StageReceive, Partial: frame}
	}
	return frame, nil
}

// drain consumes all currently available bytes in one pass and reports
// whether the last byte terminates the frame.
func (r *LineReader) drain() bool {
	n := r.Transport.Available()
	if n <= 0 {
		return false
	}
	for i := 0; i < n; i++ {
		b, err := r.Transport.ReadByte()
		if err != nil {
			break
		}
		r.buf = append(r.buf, b)
	}
	if l := len(r.buf); l > 0 && r.buf[l-1] == newline {
		r.buf = r.buf[:l-1]
		return true
	}
	return false
}
