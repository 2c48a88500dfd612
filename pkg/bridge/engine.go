package bridge

import (
	"time"

	"github.com/golang/glog"
)

// State is the state of the Engine.
type State int

// Engine states. Every dispatch starts and ends in StateIdle.
const (
	StateIdle State = iota
	StateFlushing
	StateSending
	StateAwaitingResponse
	StateDecoding
	StateSuccess
	StateTimeout
	StateMalformedFrame
)

var stateNames = map[State]string{
	StateIdle:             "Idle",
	StateFlushing:         "Flushing",
	StateSending:          "Sending",
	StateAwaitingResponse: "AwaitingResponse",
	StateDecoding:         "Decoding",
	StateSuccess:          "Success",
	StateTimeout:          "Timeout",
	StateMalformedFrame:   "MalformedFrame",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// StateNotifier is called on every state transition of the Engine.
type StateNotifier interface {
	StateChanged(State)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(state State) {
	f(state)
}

// Defaults of Engine timing.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultSettleDelay     = 100 * time.Millisecond
	DefaultPollInterval    = 100 * time.Millisecond
	DefaultReceiveInterval = 100 * time.Microsecond
)

// Stats counts Engine outcomes.
type Stats struct {
	Sent      int
	Responses int
	Timeouts  int
	Malformed int
	Flushed   int
}

// Engine runs one command at a time over a Transport:
// flush stale input, send, wait with timeout, read and decode.
//
// Engine has no internal locking. Only one goroutine may use it at a time.
type Engine struct {
	Transport Transport
	Clock     Clock
	Notifier  StateNotifier

	// Timeout bounds the wait for a complete response frame.
	Timeout time.Duration
	// SettleDelay is waited before and between flush drains.
	SettleDelay time.Duration
	// PollInterval is the yield while waiting for the first response byte.
	PollInterval time.Duration
	// ReceiveInterval is the yield while a frame is being accumulated.
	ReceiveInterval time.Duration
	// Debug logs every frame sent and received.
	Debug bool

	state  State
	stats  Stats
	reader LineReader
}

// NewEngine creates an Engine with default timing on the system clock.
func NewEngine(t Transport) *Engine {
	return &Engine{
		Transport:       t,
		Clock:           SystemClock,
		Timeout:         DefaultTimeout,
		SettleDelay:     DefaultSettleDelay,
		PollInterval:    DefaultPollInterval,
		ReceiveInterval: DefaultReceiveInterval,
	}
}

// State gets the current state.
func (e *Engine) State() State {
	return e.state
}

// Stats gets the counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Do sends a command and waits for its response.
// A timeout is returned as error and never retried here. A frame that
// cannot be decoded is logged and returned as a nil Response without error.
func (e *Engine) Do(cmd *Command) (*Response, error) {
	return e.dispatch(cmd, true)
}

// Post sends a command without waiting for any response.
func (e *Engine) Post(cmd *Command) error {
	_, err := e.dispatch(cmd, false)
	return err
}

func (e *Engine) dispatch(cmd *Command, waitForResponse bool) (*Response, error) {
	frame, err := cmd.Encode()
	if err != nil {
		glog.Warningf("%s not sent: %v", cmd.Name, err)
		return nil, err
	}
	defer e.setState(StateIdle)

	e.setState(StateFlushing)
	if err = e.flush(); err != nil {
		e.stats.Timeouts++
		e.setState(StateTimeout)
		return nil, err
	}

	e.setState(StateSending)
	e.trace("TX", frame[:len(frame)-1])
	if _, err = e.Transport.Write(frame); err != nil {
		return nil, err
	}
	e.stats.Sent++
	if !waitForResponse {
		return nil, nil
	}

	e.setState(StateAwaitingResponse)
	deadline := e.clock().Now().Add(e.timeout())
	await := Poller{Clock: e.clock(), Interval: orDefault(e.PollInterval, DefaultPollInterval)}
	if !await.Until(deadline, func() bool { return e.Transport.Available() > 0 }) {
		e.stats.Timeouts++
		e.setState(StateTimeout)
		return nil, &TimeoutError{Stage: StageAwait}
	}

	e.setState(StateDecoding)
	e.reader.Transport = e.Transport
	e.reader.Poller = Poller{Clock: e.clock(), Interval: orDefault(e.ReceiveInterval, DefaultReceiveInterval)}
	line, err := e.reader.ReadFrameBefore(deadline)
	if err != nil {
		e.stats.Timeouts++
		e.setState(StateTimeout)
		return nil, err
	}
	e.trace("RX", line)
	resp, err := DecodeResponse(line)
	if err != nil {
		glog.Warningf("%s: %v", cmd.Name, err)
		e.stats.Malformed++
		e.setState(StateMalformedFrame)
		return nil, nil
	}
	e.stats.Responses++
	e.setState(StateSuccess)
	return resp, nil
}

// flush waits SettleDelay and discards whatever arrived, repeating until
// a settle period passes with nothing to discard.
func (e *Engine) flush() error {
	var discarded []byte
	settle := Poller{Clock: e.clock(), Interval: orDefault(e.SettleDelay, DefaultSettleDelay)}
	deadline := e.clock().Now().Add(e.timeout())
	settle.Clock.Sleep(settle.Interval)
	flushed := settle.Until(deadline, func() bool {
		n := e.Transport.Available()
		for i := 0; i < n; i++ {
			b, err := e.Transport.ReadByte()
			if err != nil {
				break
			}
			discarded = append(discarded, b)
		}
		return n <= 0
	})
	if len(discarded) > 0 {
		glog.Warningf("flushing extra data - %q", discarded)
		e.stats.Flushed += len(discarded)
	}
	if !flushed {
		return &TimeoutError{Stage: StageFlush, Partial: discarded}
	}
	return nil
}

func (e *Engine) setState(state State) {
	if e.state == state {
		return
	}
	e.state = state
	if n := e.Notifier; n != nil {
		n.StateChanged(state)
	}
}

func (e *Engine) trace(dir string, line []byte) {
	if e.Debug || bool(glog.V(2)) {
		glog.Infof("%s %s", dir, line)
	}
}

func (e *Engine) clock() Clock {
	if e.Clock == nil {
		return SystemClock
	}
	return e.Clock
}

func (e *Engine) timeout() time.Duration {
	return orDefault(e.Timeout, DefaultTimeout)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
