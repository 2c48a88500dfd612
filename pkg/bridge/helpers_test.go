package bridge

import "time"

type fakeClock struct {
	now     time.Time
	sleeps  []time.Duration
	onSleep func()
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1000, 0)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.onSleep != nil {
		c.onSleep()
	}
}

// fakeTransport releases one pending chunk per clock sleep when wired with
// newTestEngine/newTestReader, and can react to writes like a peer.
type fakeTransport struct {
	rx      []byte
	pending [][]byte
	writes  [][]byte
	onWrite func(t *fakeTransport, p []byte)
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.writes = append(t.writes, append([]byte(nil), p...))
	if t.onWrite != nil {
		t.onWrite(t, p)
	}
	return len(p), nil
}

func (t *fakeTransport) Available() int {
	return len(t.rx)
}

func (t *fakeTransport) ReadByte() (byte, error) {
	if len(t.rx) == 0 {
		return 0, ErrNoData
	}
	b := t.rx[0]
	t.rx = t.rx[1:]
	return b, nil
}

func (t *fakeTransport) inject(p ...byte) {
	t.rx = append(t.rx, p...)
}

func (t *fakeTransport) schedule(chunks ...[]byte) {
	t.pending = append(t.pending, chunks...)
}

func (t *fakeTransport) release() {
	if len(t.pending) > 0 {
		t.inject(t.pending[0]...)
		t.pending = t.pending[1:]
	}
}

func replyWith(frames ...string) func(*fakeTransport, []byte) {
	return func(t *fakeTransport, _ []byte) {
		for _, f := range frames {
			t.schedule([]byte(f))
		}
	}
}

func newTestEngine() (*Engine, *fakeTransport, *fakeClock) {
	tr := &fakeTransport{}
	clk := newFakeClock()
	clk.onSleep = tr.release
	e := NewEngine(tr)
	e.Clock = clk
	return e, tr, clk
}
