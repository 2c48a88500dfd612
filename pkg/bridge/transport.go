package bridge

import "time"

// Transport is the raw byte stream to the peer module.
// It raises no error for absence of data: callers poll Available.
type Transport interface {
	// Write sends bytes immediately without buffering across calls.
	Write(p []byte) (int, error)
	// Available returns the count of unread bytes.
	Available() int
	// ReadByte returns the next unread byte.
	// It is only valid when Available() > 0.
	ReadByte() (byte, error)
}

// Clock provides the monotonic time and the cooperative yield used while
// polling the Transport.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the Clock backed by package time.
var SystemClock Clock = systemClock{}

// Poller repeats a check every Interval until it succeeds or a deadline
// passes. It is the only place the calling goroutine yields while talking
// to the peer.
type Poller struct {
	Clock    Clock
	Interval time.Duration
}

// Until calls check until it returns true and reports true.
// Every failed check is followed by a sleep of Interval, and once the clock
// is past deadline it gives up and reports false.
func (p Poller) Until(deadline time.Time, check func() bool) bool {
	for {
		if check() {
			return true
		}
		if p.Clock.Now().After(deadline) {
			return false
		}
		p.Clock.Sleep(p.Interval)
	}
}
