// Package link adapts byte streams into bridge transports.
package link

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/winot.go/pkg/bridge"
	"github.com/robotalks/winot.go/pkg/framework"
)

// DefaultReadSize is the size of a single read from the underlying stream.
const DefaultReadSize = 256

// Stream wraps an io.ReadWriter as a bridge.Transport.
// Run must be running for received bytes to become available.
type Stream struct {
	ReadWriter io.ReadWriter
	ReadSize   int

	lock      sync.Mutex
	writeLock sync.Mutex
	buf       []byte
	err       error
	closeOnce sync.Once
	done      chan struct{}
}

// NewStream creates a Stream.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{
		ReadWriter: rw,
		ReadSize:   DefaultReadSize,
		done:       make(chan struct{}),
	}
}

// Write implements bridge.Transport.
func (s *Stream) Write(p []byte) (int, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return s.ReadWriter.Write(p)
}

// Available implements bridge.Transport.
func (s *Stream) Available() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.buf)
}

// ReadByte implements bridge.Transport.
func (s *Stream) ReadByte() (byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, bridge.ErrNoData
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

// Err returns the error which stopped Run.
func (s *Stream) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

// Close stops reading and closes the underlying stream if it's an io.Closer.
func (s *Stream) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.done)
		if closer, ok := s.ReadWriter.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return
}

// Run reads from the underlying stream in the background until ctx is
// done or the stream fails.
func (s *Stream) Run(ctx context.Context) error {
	err := framework.RunWithContextCloser(ctx, s, s.readLoop)
	if err != nil && err != context.Canceled {
		glog.Errorf("link stopped: %v", err)
	}
	return err
}

func (s *Stream) readLoop() error {
	size := s.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	buf := make([]byte, size)
	for {
		n, err := s.ReadWriter.Read(buf)
		select {
		case <-s.done:
			return s.setErr(io.ErrClosedPipe)
		default:
		}
		if n > 0 {
			s.lock.Lock()
			s.buf = append(s.buf, buf[:n]...)
			s.lock.Unlock()
		}
		if err != nil && !os.IsTimeout(err) {
			return s.setErr(err)
		}
	}
}

func (s *Stream) setErr(err error) error {
	s.lock.Lock()
	s.err = err
	s.lock.Unlock()
	return err
}
