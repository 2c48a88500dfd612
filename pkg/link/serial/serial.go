// Package serial opens the UART connected to the peer module.
package serial

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.bug.st/serial"

	"github.com/robotalks/winot.go/pkg/link"
)

// Defaults of the UART to the peer module: 57600 baud, 8N1.
const (
	DefaultBaudRate    = 57600
	DefaultReadTimeout = 10 * time.Millisecond
)

// NoTimeout makes reads block until data arrives or the port is closed.
var NoTimeout = serial.NoTimeout

// Config holds the serial port settings.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

// ConfigFromURL parses serial:///dev/ttyACM0?baud=57600.
// The device may also be given as host, e.g. serial://COM3.
func ConfigFromURL(u *url.URL) (Config, error) {
	cfg := Config{Device: u.Host + u.Path, BaudRate: DefaultBaudRate}
	if cfg.Device == "" {
		cfg.Device = u.Opaque
	}
	if baud := u.Query().Get("baud"); baud != "" {
		n, err := strconv.Atoi(baud)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid baud rate %q", baud)
		}
		cfg.BaudRate = n
	}
	return cfg, nil
}

// Open opens the serial port as 8N1.
// Reads return with no data after ReadTimeout so the port can be closed
// from another goroutine.
func Open(cfg Config) (serial.Port, error) {
	if cfg.Device == "" {
		return nil, errors.New("serial device required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	if err = port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Device, err)
	}
	return port, nil
}

// OpenStream opens the serial port wrapped as a link.Stream.
func OpenStream(cfg Config) (*link.Stream, error) {
	port, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return link.NewStream(port), nil
}
