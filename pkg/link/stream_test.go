package link

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/winot.go/pkg/bridge"
)

type chanReadWriter struct {
	readCh  chan []byte
	written [][]byte
	closed  bool
}

func (c *chanReadWriter) Read(p []byte) (int, error) {
	b, ok := <-c.readCh
	if !ok {
		return 0, io.EOF
	}
	return copy(p, b), nil
}

func (c *chanReadWriter) Write(p []byte) (int, error) {
	c.written = append(c.written, append([]byte(nil), p...))
	return len(p), nil
}

func (c *chanReadWriter) Close() error {
	if !c.closed {
		c.closed = true
		close(c.readCh)
	}
	return nil
}

func waitAvailable(t *testing.T, s *Stream, n int) {
	for i := 0; i < 200 && s.Available() < n; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, n, s.Available())
}

func TestStreamBuffersReads(t *testing.T) {
	rw := &chanReadWriter{readCh: make(chan []byte)}
	s := NewStream(rw)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Zero(t, s.Available())
	_, err := s.ReadByte()
	require.Equal(t, bridge.ErrNoData, err)

	rw.readCh <- []byte("ab")
	rw.readCh <- []byte{}
	rw.readCh <- []byte("c\n")
	waitAvailable(t, s, 4)
	var got []byte
	for s.Available() > 0 {
		b, err := s.ReadByte()
		require.NoError(t, err)
		got = append(got, b)
	}
	require.Equal(t, "abc\n", string(got))

	n, err := s.Write([]byte("out\n"))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, [][]byte{[]byte("out\n")}, rw.written)

	cancel()
	require.Equal(t, context.Canceled, <-errCh)
	require.True(t, rw.closed)
}

func TestStreamReportsEOF(t *testing.T) {
	rw := &chanReadWriter{readCh: make(chan []byte, 1)}
	s := NewStream(rw)
	rw.readCh <- []byte("x")
	close(rw.readCh)
	rw.closed = true
	err := s.Run(context.Background())
	require.True(t, errors.Is(err, io.EOF))
	require.Equal(t, io.EOF, s.Err())

	b, err := s.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('x'), b)
	_, err = s.ReadByte()
	require.Equal(t, io.EOF, err)
}
