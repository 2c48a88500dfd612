// Package peer emulates the WiNoT peer module: it answers command envelopes
// from the controller and keeps the cloud tree in a Store.
package peer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/winot.go/pkg/bridge"
	"github.com/robotalks/winot.go/pkg/framework"
	"github.com/robotalks/winot.go/pkg/peer/store"
)

// Response codes of the emulator.
const (
	CodeOK                 = bridge.CodeOK
	CodeBadRequest         = 400
	CodeNotFound           = 404
	CodePreconditionFailed = 412
	CodeInternalError      = 500
)

// Notifier observes changes to the tree.
type Notifier interface {
	ValueSet(key string, v bridge.Value)
	KeyDeleted(key string)
	TreeDeleted(tree string)
}

// Platform is the configuration accepted by SetPlatform.
type Platform struct {
	Name string
	Host string
	Auth string
	Tree string
}

// Module is the emulated peer module.
type Module struct {
	Store    store.Store
	Notifier Notifier
	// IP is reported on a successful ConnectWifi.
	IP string
	// RejectConnects makes the first connect attempts fail.
	RejectConnects int

	lock     sync.Mutex
	platform *Platform
	ssid     string
	upgrades int
}

// NewModule creates a Module.
func NewModule(s store.Store, ip string) *Module {
	return &Module{Store: s, IP: ip}
}

// Platform returns the configured platform, nil if none.
func (m *Module) Platform() *Platform {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.platform == nil {
		return nil
	}
	p := *m.platform
	return &p
}

// Upgrades returns the count of upgrade requests received.
func (m *Module) Upgrades() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.upgrades
}

// HandleFrame answers a frame without its newline.
// It returns nil when the command expects no response.
func (m *Module) HandleFrame(ctx context.Context, frame []byte) *bridge.Response {
	cmd, err := bridge.DecodeCommand(frame)
	if err != nil {
		glog.Warningf("peer: %v", err)
		return &bridge.Response{Code: CodeBadRequest, Text: err.Error()}
	}
	return m.Handle(ctx, cmd)
}

// Handle executes a command.
func (m *Module) Handle(ctx context.Context, cmd *bridge.Command) *bridge.Response {
	m.lock.Lock()
	defer m.lock.Unlock()
	switch cmd.Name {
	case bridge.CmdConnectWifi:
		return m.connectWifi(cmd)
	case bridge.CmdUpgrade:
		m.upgrades++
		glog.Info("peer: upgrade requested")
		return nil
	case bridge.CmdSetPlatform:
		return m.setPlatform(cmd)
	case bridge.CmdSetInt, bridge.CmdSetFloat, bridge.CmdSetBoolean, bridge.CmdSetString:
		return m.set(ctx, cmd)
	case bridge.CmdReadAny, bridge.CmdReadString:
		return m.read(ctx, cmd)
	case bridge.CmdDelete:
		return m.delete(ctx, cmd)
	}
	return &bridge.Response{Code: CodeBadRequest, Text: "unknown command " + cmd.Name}
}

func (m *Module) connectWifi(cmd *bridge.Command) *bridge.Response {
	ssid := cmd.Field("SSID").String()
	if ssid == "" {
		return &bridge.Response{Code: CodeBadRequest, Text: "SSID required"}
	}
	if m.RejectConnects > 0 {
		m.RejectConnects--
		return &bridge.Response{Code: CodeInternalError, Text: "unable to join " + ssid}
	}
	m.ssid = ssid
	return &bridge.Response{Code: CodeOK, Text: m.IP}
}

func (m *Module) setPlatform(cmd *bridge.Command) *bridge.Response {
	p := &Platform{
		Name: cmd.Field("Platform").String(),
		Host: cmd.Field("Host").String(),
		Auth: cmd.Field("Auth").String(),
		Tree: cmd.Field("Tree").String(),
	}
	if p.Host == "" {
		return &bridge.Response{Code: CodeBadRequest, Text: "Host required"}
	}
	m.platform = p
	return &bridge.Response{Code: CodeOK}
}

var setKinds = map[string]bridge.Kind{
	bridge.CmdSetInt:     bridge.KindInt,
	bridge.CmdSetFloat:   bridge.KindFloat,
	bridge.CmdSetBoolean: bridge.KindBool,
	bridge.CmdSetString:  bridge.KindString,
}

func (m *Module) set(ctx context.Context, cmd *bridge.Command) *bridge.Response {
	if m.platform == nil {
		return &bridge.Response{Code: CodePreconditionFailed, Text: "platform not configured"}
	}
	key, v := cmd.Field("Key").String(), cmd.Field("Value")
	if key == "" {
		return &bridge.Response{Code: CodeBadRequest, Text: "Key required"}
	}
	kind := setKinds[cmd.Name]
	// integral floats may arrive from encoders that drop the fraction.
	if kind == bridge.KindFloat && v.Kind() == bridge.KindInt {
		v = bridge.FloatValue(v.Float())
	}
	if v.Kind() != kind {
		return &bridge.Response{Code: CodeBadRequest, Text: fmt.Sprintf("%s expects %s, got %s", cmd.Name, kind, v.Kind())}
	}
	path := store.Join(m.platform.Tree, key)
	if err := m.Store.Set(ctx, path, v); err != nil {
		return storeError(err)
	}
	if n := m.Notifier; n != nil {
		n.ValueSet(path, v)
	}
	return &bridge.Response{Code: CodeOK}
}

func (m *Module) read(ctx context.Context, cmd *bridge.Command) *bridge.Response {
	if m.platform == nil {
		return &bridge.Response{Code: CodePreconditionFailed, Text: "platform not configured"}
	}
	key := cmd.Field("Key").String()
	v, ok, err := m.Store.Get(ctx, store.Join(m.platform.Tree, key))
	if err != nil {
		return storeError(err)
	}
	if !ok {
		return &bridge.Response{Code: CodeNotFound, Text: "key not found"}
	}
	if cmd.Name == bridge.CmdReadString {
		v = bridge.StringValue(v.String())
	}
	return &bridge.Response{Code: CodeOK, Value: v}
}

func (m *Module) delete(ctx context.Context, cmd *bridge.Command) *bridge.Response {
	if m.platform == nil {
		return &bridge.Response{Code: CodePreconditionFailed, Text: "platform not configured"}
	}
	if cmd.Field("FullTree").Bool() {
		count, err := m.Store.DeleteTree(ctx, m.platform.Tree)
		if err != nil {
			return storeError(err)
		}
		if n := m.Notifier; n != nil {
			n.TreeDeleted(m.platform.Tree)
		}
		return &bridge.Response{Code: CodeOK, Text: fmt.Sprintf("%d keys deleted", count)}
	}
	key := cmd.Field("Key").String()
	if key == "" {
		return &bridge.Response{Code: CodeBadRequest, Text: "Key or FullTree required"}
	}
	path := store.Join(m.platform.Tree, key)
	if err := m.Store.Delete(ctx, path); err != nil {
		return storeError(err)
	}
	if n := m.Notifier; n != nil {
		n.KeyDeleted(path)
	}
	return &bridge.Response{Code: CodeOK}
}

func storeError(err error) *bridge.Response {
	glog.Errorf("peer store: %v", err)
	return &bridge.Response{Code: CodeInternalError, Text: err.Error()}
}

// Serve answers frames read from rw until ctx is done or rw fails.
// rw is closed on return if it's an io.Closer.
func (m *Module) Serve(ctx context.Context, rw io.ReadWriter) error {
	serve := func() error {
		r := bufio.NewReader(rw)
		for {
			line, err := r.ReadBytes('\n')
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			line = bytes.TrimSuffix(line[:len(line)-1], []byte{'\r'})
			glog.V(2).Infof("peer RX %s", line)
			resp := m.HandleFrame(ctx, line)
			if resp == nil {
				continue
			}
			frame, err := resp.Encode()
			if err != nil {
				glog.Errorf("peer: encode response: %v", err)
				continue
			}
			glog.V(2).Infof("peer TX %s", frame[:len(frame)-1])
			if _, err = rw.Write(frame); err != nil {
				return err
			}
		}
	}
	if closer, ok := rw.(io.Closer); ok {
		return framework.RunWithContextCloser(ctx, closer, serve)
	}
	return framework.RunWithContext(ctx, serve)
}
