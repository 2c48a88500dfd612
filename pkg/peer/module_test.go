package peer

import (
	"bufio"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/winot.go/pkg/bridge"
	"github.com/robotalks/winot.go/pkg/peer/store"
)

type recorder struct {
	events []string
}

func (r *recorder) ValueSet(key string, v bridge.Value) { r.events = append(r.events, "set "+key+"="+v.String()) }
func (r *recorder) KeyDeleted(key string)               { r.events = append(r.events, "del "+key) }
func (r *recorder) TreeDeleted(tree string)             { r.events = append(r.events, "deltree "+tree) }

func TestModuleHandle(t *testing.T) {
	kv := store.NewMemoryStore()
	m := NewModule(kv, "10.0.0.9")
	rec := &recorder{}
	m.Notifier = rec

	steps := []struct {
		frame string
		reply string
	}{
		{`{"CMD":"SetInt","Data":{"Key":"a","Value":1}}`, `{"Code":412,"Text":"platform not configured"}`},
		{`{"CMD":"ReadAny","Data":{"Key":"a"}}`, `{"Code":412,"Text":"platform not configured"}`},
		{`{"CMD":"ConnectWifi","Data":{"SSID":"","Password":"x"}}`, `{"Code":400,"Text":"SSID required"}`},
		{`{"CMD":"ConnectWifi","Data":{"SSID":"lab","Password":"x"}}`, `{"Code":200,"Text":"10.0.0.9"}`},
		{`{"CMD":"SetPlatform","Data":{"Platform":"Firebase","Host":"","Auth":"x"}}`, `{"Code":400,"Text":"Host required"}`},
		{`{"CMD":"SetPlatform","Data":{"Platform":"Firebase","Host":"h","Auth":"x","Tree":"t"}}`, `{"Code":200}`},
		{`{"CMD":"SetInt","Data":{"Key":"a","Value":1}}`, `{"Code":200}`},
		{`{"CMD":"SetInt","Data":{"Key":"a","Value":"1"}}`, `{"Code":400,"Text":"SetInt expects int, got string"}`},
		{`{"CMD":"SetFloat","Data":{"Key":"f","Value":2}}`, `{"Code":200}`},
		{`{"CMD":"SetBoolean","Data":{"Key":"b","Value":false}}`, `{"Code":200}`},
		{`{"CMD":"SetString","Data":{"Key":"s","Value":"hi"}}`, `{"Code":200}`},
		{`{"CMD":"ReadAny","Data":{"Key":"a"}}`, `{"Code":200,"Value":1}`},
		{`{"CMD":"ReadAny","Data":{"Key":"f"}}`, `{"Code":200,"Value":2.0}`},
		{`{"CMD":"ReadString","Data":{"Key":"b"}}`, `{"Code":200,"Value":"false"}`},
		{`{"CMD":"ReadAny","Data":{"Key":"zz"}}`, `{"Code":404,"Text":"key not found"}`},
		{`{"CMD":"Delete","Data":{"Key":"a"}}`, `{"Code":200}`},
		{`{"CMD":"Delete","Data":{}}`, `{"Code":400,"Text":"Key or FullTree required"}`},
		{`{"CMD":"Delete","Data":{"FullTree":true}}`, `{"Code":200,"Text":"3 keys deleted"}`},
		{`{"CMD":"Reboot"}`, `{"Code":400,"Text":"unknown command Reboot"}`},
		{`{"CMD":"Upgrade"}`, ``},
	}
	for _, step := range steps {
		resp := m.HandleFrame(context.Background(), []byte(step.frame))
		if step.reply == "" {
			require.Nil(t, resp, step.frame)
			continue
		}
		require.NotNil(t, resp, step.frame)
		frame, err := resp.Encode()
		require.NoError(t, err)
		require.Equal(t, step.reply+"\n", string(frame), step.frame)
	}

	require.Equal(t, 1, m.Upgrades())
	require.Equal(t, &Platform{Name: "Firebase", Host: "h", Auth: "x", Tree: "t"}, m.Platform())
	require.Empty(t, kv.Keys())
	require.Equal(t, []string{
		"set t/a=1",
		"set t/f=2.0",
		"set t/b=false",
		"set t/s=hi",
		"del t/a",
		"deltree t",
	}, rec.events)
}

func TestModuleRejectsGarbage(t *testing.T) {
	m := NewModule(store.NewMemoryStore(), "")
	for _, frame := range []string{"", "hello", `{"Data":{}}`, "\xff"} {
		resp := m.HandleFrame(context.Background(), []byte(frame))
		require.Equal(t, CodeBadRequest, resp.Code, frame)
		require.NotEmpty(t, resp.Text)
	}
}

func TestModuleRejectConnects(t *testing.T) {
	m := NewModule(store.NewMemoryStore(), "1.2.3.4")
	m.RejectConnects = 1
	cmd := bridge.NewCommand(bridge.CmdConnectWifi).With("SSID", bridge.StringValue("x"))
	require.Equal(t, CodeInternalError, m.Handle(context.Background(), cmd).Code)
	require.Equal(t, "1.2.3.4", m.Handle(context.Background(), cmd).Text)
}

func TestModuleServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, server := net.Pipe()
	m := NewModule(store.NewMemoryStore(), "1.2.3.4")
	errCh := make(chan error, 1)
	go func() { errCh <- m.Serve(ctx, server) }()

	r := bufio.NewReader(client)
	_, err := client.Write([]byte("{\"CMD\":\"Upgrade\"}\n{\"CMD\":\"ConnectWifi\",\"Data\":{\"SSID\":\"x\"}}\r\n"))
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "{\"Code\":200,\"Text\":\"1.2.3.4\"}\n", line)

	_, err = client.Write([]byte("oops\n"))
	require.NoError(t, err)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	resp, err := bridge.DecodeResponse([]byte(line[:len(line)-1]))
	require.NoError(t, err)
	require.Equal(t, CodeBadRequest, resp.Code)

	client.Close()
	require.NoError(t, <-errCh)
	require.Equal(t, 1, m.Upgrades())
}
