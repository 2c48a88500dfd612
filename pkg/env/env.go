// Package env builds a ready-to-use cloud session from flags and
// environment variables.
package env

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/winot.go/pkg/bridge"
	"github.com/robotalks/winot.go/pkg/cloud"
	"github.com/robotalks/winot.go/pkg/link"
	"github.com/robotalks/winot.go/pkg/link/serial"
	"github.com/robotalks/winot.go/pkg/link/websocket"
)

// Config provides the options to reach the peer module.
type Config struct {
	// URL locates the link to the peer module.
	// e.g. serial:///dev/ttyACM0?baud=57600, tcp://host:port, ws://host/path
	URL          string
	Timeout      time.Duration
	SettleDelay  time.Duration
	PollInterval time.Duration
	Debug        bool
}

var defaultConfig = Config{
	URL:          "serial:///dev/ttyACM0",
	Timeout:      bridge.DefaultTimeout,
	SettleDelay:  bridge.DefaultSettleDelay,
	PollInterval: bridge.DefaultPollInterval,
}

func init() {
	if val := os.Getenv("WINOT_URL"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("WINOT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.Timeout = d
		}
	}
	if val := os.Getenv("WINOT_DEBUG"); val != "" {
		defaultConfig.Debug, _ = strconv.ParseBool(val)
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.URL, "url", defaultConfig.URL, "Link URL of the peer module")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Response timeout")
	flag.DurationVar(&defaultConfig.SettleDelay, "settle", defaultConfig.SettleDelay, "Settle delay before sending")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Poll interval waiting for response")
	flag.BoolVar(&defaultConfig.Debug, "debug", defaultConfig.Debug, "Log every frame sent and received")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is a session connected to the peer module.
type Env struct {
	Config  *Config
	Link    *link.Stream
	Engine  *bridge.Engine
	Session *cloud.Session
}

// Dial opens the link named by URL.
func Dial(linkURL string) (*link.Stream, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		cfg, err := serial.ConfigFromURL(u)
		if err != nil {
			return nil, err
		}
		return serial.OpenStream(cfg)
	case "tcp":
		conn, err := net.Dial("tcp", u.Host)
		if err != nil {
			return nil, err
		}
		return link.NewStream(conn), nil
	case "ws", "wss":
		return websocket.DialStream(u)
	}
	return nil, fmt.Errorf("unsupported link scheme %q", u.Scheme)
}

// Open connects to the peer module.
// Env.Run must be running while the session is used.
func (c *Config) Open() (*Env, error) {
	stream, err := Dial(c.URL)
	if err != nil {
		return nil, fmt.Errorf("open link %s: %w", c.URL, err)
	}
	return c.NewEnv(stream), nil
}

// MustOpen connects to the peer module and fails on error.
func (c *Config) MustOpen() *Env {
	env, err := c.Open()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// NewEnv creates Env over an established link.
func (c *Config) NewEnv(stream *link.Stream) *Env {
	engine := bridge.NewEngine(stream)
	engine.Timeout = c.Timeout
	engine.SettleDelay = c.SettleDelay
	engine.PollInterval = c.PollInterval
	engine.Debug = c.Debug
	return &Env{
		Config:  c,
		Link:    stream,
		Engine:  engine,
		Session: cloud.NewSession(engine),
	}
}

// Name implements framework.Named.
func (e *Env) Name() string {
	return "link"
}

// Run implements framework.Runnable.
func (e *Env) Run(ctx context.Context) error {
	return e.Link.Run(ctx)
}

// Close implements io.Closer.
func (e *Env) Close() error {
	return e.Link.Close()
}
