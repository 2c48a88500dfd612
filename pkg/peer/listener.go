package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/winot.go/pkg/framework"
	"github.com/robotalks/winot.go/pkg/link/serial"
	wslink "github.com/robotalks/winot.go/pkg/link/websocket"
)

// Listener serves a Module on an endpoint URL:
// tcp://host:port, ws://host:port/path or serial:///dev/ttyX?baud=N.
type Listener struct {
	Module *Module
	URL    *url.URL

	addrCh chan net.Addr
}

// NewListener parses the endpoint URL.
func NewListener(m *Module, endpoint string) (*Listener, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "tcp", "ws", "serial":
	default:
		return nil, fmt.Errorf("unsupported listen scheme %q", u.Scheme)
	}
	return &Listener{Module: m, URL: u, addrCh: make(chan net.Addr, 1)}, nil
}

// Name implements framework.Named.
func (l *Listener) Name() string {
	return l.URL.String()
}

// Addr waits for the listening address of a tcp or ws Listener.
func (l *Listener) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case addr := <-l.addrCh:
		l.addrCh <- addr
		return addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run implements framework.Runnable.
func (l *Listener) Run(ctx context.Context) error {
	switch l.URL.Scheme {
	case "tcp":
		return l.runTCP(ctx)
	case "ws":
		return l.runWebsocket(ctx)
	default:
		return l.runSerial(ctx)
	}
}

func (l *Listener) listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", l.URL.Host)
	if err != nil {
		return nil, err
	}
	glog.Infof("peer listening on %s://%s", l.URL.Scheme, ln.Addr())
	l.addrCh <- ln.Addr()
	return ln, nil
}

func (l *Listener) runTCP(ctx context.Context) error {
	ln, err := l.listen()
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	defer wg.Wait()
	return framework.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			glog.Infof("peer: controller connected from %s", conn.RemoteAddr())
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := l.Module.Serve(ctx, conn); err != nil && err != context.Canceled {
					glog.Warningf("peer: %s: %v", conn.RemoteAddr(), err)
				}
			}()
		}
	})
}

func (l *Listener) runWebsocket(ctx context.Context) error {
	ln, err := l.listen()
	if err != nil {
		return err
	}
	path := l.URL.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		if err := l.Module.Serve(ctx, wslink.New(conn)); err != nil && err != context.Canceled {
			glog.Warningf("peer: %s: %v", conn.Request().RemoteAddr, err)
		}
	}))
	srv := &http.Server{Handler: mux}
	return framework.RunWithContextCloser(ctx, srv, func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func (l *Listener) runSerial(ctx context.Context) error {
	cfg, err := serial.ConfigFromURL(l.URL)
	if err != nil {
		return err
	}
	cfg.ReadTimeout = serial.NoTimeout
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	glog.Infof("peer serving on %s", cfg.Device)
	return l.Module.Serve(ctx, port)
}
