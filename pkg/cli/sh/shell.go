package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/winot.go/pkg/bridge"
	"github.com/robotalks/winot.go/pkg/cloud"
	"github.com/robotalks/winot.go/pkg/env"
	fx "github.com/robotalks/winot.go/pkg/framework"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Env    *env.Env

	runner *fx.Runner
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&WifiCmd,
		&PlatformCmd,
		&SetCmd,
		&GetCmd,
		&DelCmd,
		&DelTreeCmd,
		&UpgradeCmd,
		&IPCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("winot > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Session gets the cloud session.
func (s *Shell) Session() *cloud.Session {
	return s.Env.Session
}

// Open connects the peer module and starts reading the link.
func (s *Shell) Open() error {
	e, err := s.Config.Open()
	if err != nil {
		return err
	}
	s.Env = e
	s.runner = fx.NewRunner().Go(e)
	return nil
}

// Close stops reading the link and closes it.
func (s *Shell) Close() {
	if s.runner != nil {
		s.runner.Stop()
		s.runner.Wait()
		s.runner = nil
	}
}

// Print prints a result: the JSON form when OutputJSON, text otherwise.
func (s *Shell) Print(c *ishell.Context, text string, jsonOut interface{}) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(jsonOut)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Open(); err != nil {
		log.Fatalln(err)
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// ParseValue converts a command line argument into a Value.
// Without kind, integers, floats and true/false are recognized before
// falling back to string.
func ParseValue(arg, kind string) (bridge.Value, error) {
	switch strings.ToLower(kind) {
	case "":
		if i, err := strconv.ParseInt(arg, 10, 64); err == nil {
			return bridge.IntValue(i), nil
		}
		if f, err := strconv.ParseFloat(arg, 64); err == nil {
			return bridge.FloatValue(f), nil
		}
		if arg == "true" || arg == "false" {
			return bridge.BoolValue(arg == "true"), nil
		}
		return bridge.StringValue(arg), nil
	case "int":
		i, err := strconv.ParseInt(arg, 0, 64)
		if err != nil {
			return bridge.Value{}, fmt.Errorf("invalid int %q", arg)
		}
		return bridge.IntValue(i), nil
	case "float":
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return bridge.Value{}, fmt.Errorf("invalid float %q", arg)
		}
		return bridge.FloatValue(f), nil
	case "bool":
		b, err := strconv.ParseBool(arg)
		if err != nil {
			return bridge.Value{}, fmt.Errorf("invalid bool %q", arg)
		}
		return bridge.BoolValue(b), nil
	case "string":
		return bridge.StringValue(arg), nil
	}
	return bridge.Value{}, fmt.Errorf("%w: %s", bridge.ErrUnsupportedType, kind)
}

var (
	// WifiCmd joins the peer module to a wireless network.
	WifiCmd = ishell.Cmd{
		Name: "wifi",
		Help: "SSID PASSWORD",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("SSID and PASSWORD required"))
				return
			}
			s := ShellFrom(c)
			ip, err := s.Session().ConnectWifi(c.Args[0], c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			text := ip
			if ip == "" {
				text = "not connected"
			}
			s.Print(c, text, map[string]string{"ip": ip})
		},
	}

	// PlatformCmd configures the cloud database.
	PlatformCmd = ishell.Cmd{
		Name:    "platform",
		Aliases: []string{"p"},
		Help:    "HOST AUTH [TREE]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("HOST and AUTH required"))
				return
			}
			var tree string
			if len(c.Args) > 2 {
				tree = c.Args[2]
			}
			s := ShellFrom(c)
			ok, err := s.Session().SetPlatform(c.Args[0], c.Args[1], tree)
			if err != nil {
				c.Err(err)
				return
			}
			text := "OK"
			if !ok {
				text = "rejected"
			}
			s.Print(c, text, map[string]bool{"ok": ok})
		},
	}

	// SetCmd writes a value.
	SetCmd = ishell.Cmd{
		Name: "set",
		Help: "KEY VALUE [int|float|bool|string]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("KEY and VALUE required"))
				return
			}
			var kind string
			if len(c.Args) > 2 {
				kind = c.Args[2]
			}
			v, err := ParseValue(c.Args[1], kind)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			if err = s.Session().SetValue(c.Args[0], v); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, "OK", map[string]bool{"ok": true})
		},
	}

	// GetCmd reads a value.
	GetCmd = ishell.Cmd{
		Name: "get",
		Help: "KEY [string]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("KEY required"))
				return
			}
			asString := len(c.Args) > 1 && c.Args[1] == "string"
			s := ShellFrom(c)
			v, err := s.Session().GetValue(c.Args[0], asString)
			if err != nil {
				c.Err(err)
				return
			}
			if !v.IsValid() {
				c.Err(bridge.ErrMalformedFrame)
				return
			}
			s.Print(c, v.String(), map[string]interface{}{"value": v.Interface(), "kind": v.Kind().String()})
		},
	}

	// DelCmd removes a key.
	DelCmd = ishell.Cmd{
		Name:    "del",
		Aliases: []string{"rm"},
		Help:    "KEY",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("KEY required"))
				return
			}
			s := ShellFrom(c)
			code, err := s.Session().DeleteKey(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, strconv.Itoa(code), map[string]int{"code": code})
		},
	}

	// DelTreeCmd removes all keys under the configured tree.
	DelTreeCmd = ishell.Cmd{
		Name: "deltree",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			code, err := s.Session().DeleteTree()
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, strconv.Itoa(code), map[string]int{"code": code})
		},
	}

	// UpgradeCmd requests a firmware upgrade of the peer module.
	UpgradeCmd = ishell.Cmd{
		Name: "upgrade",
		Help: "peer is unresponsive until the upgrade completes, keep it powered",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Session().RequestUpgrade(); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, "upgrade requested, wait before sending commands", map[string]bool{"ok": true})
		},
	}

	// IPCmd shows the last known IP address.
	IPCmd = ishell.Cmd{
		Name: "ip",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ip := s.Session().IPAddress()
			s.Print(c, ip, map[string]string{"ip": ip})
		},
	}

	// StatsCmd shows the engine counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			st := s.Env.Engine.Stats()
			s.Print(c, fmt.Sprintf("sent %d, responses %d, timeouts %d, malformed %d, flushed %d bytes",
				st.Sent, st.Responses, st.Timeouts, st.Malformed, st.Flushed), st)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
