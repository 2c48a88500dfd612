package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"unicode/utf8"
)

// Command names understood by the peer module.
const (
	CmdConnectWifi = "ConnectWifi"
	CmdUpgrade     = "Upgrade"
	CmdSetPlatform = "SetPlatform"
	CmdSetInt      = "SetInt"
	CmdSetFloat    = "SetFloat"
	CmdSetBoolean  = "SetBoolean"
	CmdSetString   = "SetString"
	CmdReadString  = "ReadString"
	CmdReadAny     = "ReadAny"
	CmdDelete      = "Delete"
)

// Frame terminator.
const newline byte = '\n'

// CodeOK is the response code for success.
const CodeOK = 200

// Command is an outbound envelope. It is built fresh for every call.
type Command struct {
	Name string           `json:"CMD"`
	Data map[string]Value `json:"Data,omitempty"`
}

// NewCommand creates a Command with no fields.
func NewCommand(name string) *Command {
	return &Command{Name: name}
}

// With sets a field and returns the Command for chaining.
func (c *Command) With(field string, v Value) *Command {
	if c.Data == nil {
		c.Data = make(map[string]Value)
	}
	c.Data[field] = v
	return c
}

// Field returns a field of Data, invalid if absent.
func (c *Command) Field(field string) Value {
	return c.Data[field]
}

// Encode produces the frame: one JSON line terminated by a newline.
// It fails without side effects when a field holds an unsupported value.
func (c *Command) Encode() ([]byte, error) {
	if c.Name == "" {
		return nil, errors.New("command name required")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return append(b, newline), nil
}

// DecodeCommand parses a frame without its newline into a Command.
func DecodeCommand(frame []byte) (*Command, error) {
	if !utf8.Valid(frame) {
		return nil, &FrameError{Frame: frame, Err: errors.New("invalid UTF-8")}
	}
	var cmd Command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return nil, &FrameError{Frame: frame, Err: err}
	}
	if cmd.Name == "" {
		return nil, &FrameError{Frame: frame, Err: errors.New("missing CMD")}
	}
	return &cmd, nil
}

// Response is an inbound envelope.
// Text is empty and Value is invalid when the peer omits them.
type Response struct {
	Code  int
	Text  string
	Value Value
}

type responseJSON struct {
	Code  int     `json:"Code"`
	Text  *string `json:"Text,omitempty"`
	Value *Value  `json:"Value,omitempty"`
}

// OK indicates the peer reported success.
func (r *Response) OK() bool {
	return r.Code == CodeOK
}

// HasValue indicates the response carries a Value.
func (r *Response) HasValue() bool {
	return r.Value.IsValid()
}

// Err returns a PeerError for a non-success code.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &PeerError{Code: r.Code, Text: r.Text}
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	out := responseJSON{Code: r.Code}
	if r.Text != "" {
		out.Text = &r.Text
	}
	if r.Value.IsValid() {
		out.Value = &r.Value
	}
	return json.Marshal(&out)
}

// UnmarshalJSON implements json.Unmarshaler.
// A missing Code decodes as 0; a null Value decodes as absent.
func (r *Response) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("null envelope")
	}
	var in responseJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*r = Response{Code: in.Code}
	if in.Text != nil {
		r.Text = *in.Text
	}
	if in.Value != nil {
		r.Value = *in.Value
	}
	return nil
}

// Encode produces the frame: one JSON line terminated by a newline.
func (r *Response) Encode() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(b, newline), nil
}

// DecodeResponse parses a frame without its newline.
// Failures are *FrameError matching ErrMalformedFrame.
func DecodeResponse(frame []byte) (*Response, error) {
	if !utf8.Valid(frame) {
		return nil, &FrameError{Frame: frame, Err: errors.New("invalid UTF-8")}
	}
	var r Response
	if err := json.Unmarshal(frame, &r); err != nil {
		return nil, &FrameError{Frame: frame, Err: err}
	}
	return &r, nil
}
