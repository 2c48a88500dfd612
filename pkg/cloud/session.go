// Package cloud provides the cloud database session on top of the bridge
// Engine: network join, platform setup and key/value operations.
package cloud

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/winot.go/pkg/bridge"
)

var (
	// ErrPlatformNotConfigured indicates a key/value operation is attempted
	// before a successful SetPlatform. No I/O is performed.
	ErrPlatformNotConfigured = errors.New("platform not configured")
	// ErrKeyNotFound indicates the response to a read carries no value.
	ErrKeyNotFound = errors.New("key not found")
)

// Platform is the only cloud platform the peer module supports.
const Platform = "Firebase"

// DefaultConnectAttempts is the number of ConnectWifi tries.
const DefaultConnectAttempts = 3

// Requester sends commands to the peer module.
// *bridge.Engine implements it.
type Requester interface {
	Do(*bridge.Command) (*bridge.Response, error)
	Post(*bridge.Command) error
}

// Session holds the state shared by the cloud operations.
// Like the Engine it is not safe for concurrent use.
type Session struct {
	Requester       Requester
	ConnectAttempts int

	platformConfigured bool
	ip                 string
}

// NewSession creates a Session.
func NewSession(r Requester) *Session {
	return &Session{Requester: r, ConnectAttempts: DefaultConnectAttempts}
}

// PlatformConfigured indicates SetPlatform has succeeded.
func (s *Session) PlatformConfigured() bool {
	return s.platformConfigured
}

// IPAddress returns the last known IP address, empty if never connected.
func (s *Session) IPAddress() string {
	return s.ip
}

// ConnectWifi joins the peer module to a wireless network.
// A rejected attempt is retried up to ConnectAttempts times in total. The
// returned address is the last known one, empty when no attempt ever
// succeeded. Only timeouts and transport failures are returned as error.
func (s *Session) ConnectWifi(ssid, password string) (string, error) {
	attempts := s.ConnectAttempts
	if attempts <= 0 {
		attempts = DefaultConnectAttempts
	}
	for n := 1; n <= attempts; n++ {
		cmd := bridge.NewCommand(bridge.CmdConnectWifi).
			With("SSID", bridge.StringValue(ssid)).
			With("Password", bridge.StringValue(password))
		resp, err := s.Requester.Do(cmd)
		if err != nil {
			return s.ip, err
		}
		if resp != nil && resp.OK() {
			s.ip = resp.Text
			glog.Infof("connected to %s, ip %s", ssid, s.ip)
			return s.ip, nil
		}
		glog.Warningf("connect to %s failed (attempt %d/%d): %v", ssid, n, attempts, responseErr(resp))
	}
	return s.ip, nil
}

// SetPlatform configures the cloud database. Tree is the root under which
// all keys live, omitted when empty.
// It reports whether the peer accepted the configuration.
func (s *Session) SetPlatform(host, auth, tree string) (bool, error) {
	cmd := bridge.NewCommand(bridge.CmdSetPlatform).
		With("Platform", bridge.StringValue(Platform)).
		With("Host", bridge.StringValue(host)).
		With("Auth", bridge.StringValue(auth))
	if tree != "" {
		cmd.With("Tree", bridge.StringValue(tree))
	}
	resp, err := s.Requester.Do(cmd)
	if err != nil {
		return false, err
	}
	if resp == nil || !resp.OK() {
		glog.Warningf("set platform %s rejected: %v", host, responseErr(resp))
		return false, nil
	}
	s.platformConfigured = true
	return true, nil
}

// Set writes a Go scalar, inferring the variant.
func (s *Session) Set(key string, v interface{}) error {
	val, err := bridge.ValueOf(v)
	if err != nil {
		return err
	}
	return s.SetValue(key, val)
}

// SetValue writes a value using the command matching its variant.
func (s *Session) SetValue(key string, v bridge.Value) error {
	if !s.platformConfigured {
		return ErrPlatformNotConfigured
	}
	name, err := v.SetCommand()
	if err != nil {
		return err
	}
	resp, err := s.Requester.Do(bridge.NewCommand(name).
		With("Key", bridge.StringValue(key)).
		With("Value", v))
	if err != nil || resp == nil {
		return err
	}
	return resp.Err()
}

// GetValue reads a value. With asString the peer renders the value as a
// string. A response without value fails with ErrKeyNotFound, and an
// undecodable response yields the invalid Value.
func (s *Session) GetValue(key string, asString bool) (bridge.Value, error) {
	if !s.platformConfigured {
		return bridge.Value{}, ErrPlatformNotConfigured
	}
	name := bridge.CmdReadAny
	if asString {
		name = bridge.CmdReadString
	}
	resp, err := s.Requester.Do(bridge.NewCommand(name).With("Key", bridge.StringValue(key)))
	if err != nil || resp == nil {
		return bridge.Value{}, err
	}
	if !resp.HasValue() {
		if resp.Text != "" {
			return bridge.Value{}, fmt.Errorf("%w: %s (%d %s)", ErrKeyNotFound, key, resp.Code, resp.Text)
		}
		return bridge.Value{}, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return resp.Value, nil
}

// DeleteKey removes a key and returns the response code.
// The code is 0 when the response cannot be decoded.
func (s *Session) DeleteKey(key string) (int, error) {
	return s.delete(bridge.NewCommand(bridge.CmdDelete).With("Key", bridge.StringValue(key)))
}

// DeleteTree removes every key under the configured tree and returns the
// response code.
func (s *Session) DeleteTree() (int, error) {
	return s.delete(bridge.NewCommand(bridge.CmdDelete).With("FullTree", bridge.BoolValue(true)))
}

func (s *Session) delete(cmd *bridge.Command) (int, error) {
	if !s.platformConfigured {
		return 0, ErrPlatformNotConfigured
	}
	resp, err := s.Requester.Do(cmd)
	if err != nil || resp == nil {
		return 0, err
	}
	return resp.Code, nil
}

// RequestUpgrade starts a firmware upgrade of the peer module and returns
// without waiting for any response.
//
// The peer is unresponsive until the upgrade completes and no command may be
// issued meanwhile. Losing power during the upgrade may leave the peer
// unbootable.
func (s *Session) RequestUpgrade() error {
	glog.Warning("peer module upgrading, do not power off or send commands until it completes")
	return s.Requester.Post(bridge.NewCommand(bridge.CmdUpgrade))
}

func responseErr(resp *bridge.Response) error {
	if resp == nil {
		return bridge.ErrMalformedFrame
	}
	return resp.Err()
}
