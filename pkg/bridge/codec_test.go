package bridge

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetCommandDispatch(t *testing.T) {
	testCases := []struct {
		name  string
		value interface{}
		cmd   string
		wire  string
	}{
		{"int", 5, CmdSetInt, `5`},
		{"int64", int64(-7), CmdSetInt, `-7`},
		{"uint8", uint8(255), CmdSetInt, `255`},
		{"float", 2.5, CmdSetFloat, `2.5`},
		{"integral float", 3.0, CmdSetFloat, `3.0`},
		{"float32", float32(0.5), CmdSetFloat, `0.5`},
		{"bool", true, CmdSetBoolean, `true`},
		{"string", "hi \"there\"\n", CmdSetString, `"hi \"there\"\n"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ValueOf(tc.value)
			require.NoError(t, err)
			name, err := v.SetCommand()
			require.NoError(t, err)
			require.Equal(t, tc.cmd, name)
			frame, err := NewCommand(name).With("Key", StringValue("k")).With("Value", v).Encode()
			require.NoError(t, err)
			require.Equal(t, `{"CMD":"`+tc.cmd+`","Data":{"Key":"k","Value":`+tc.wire+`}}`+"\n", string(frame))

			cmd, err := DecodeCommand(frame[:len(frame)-1])
			require.NoError(t, err)
			require.Equal(t, tc.cmd, cmd.Name)
			require.Equal(t, v, cmd.Field("Value"))
		})
	}
}

func TestValueOfUnsupported(t *testing.T) {
	for _, v := range []interface{}{
		nil,
		[]int{1},
		map[string]int{"a": 1},
		struct{}{},
		complex(1, 2),
		uint64(math.MaxUint64),
		Value{},
	} {
		_, err := ValueOf(v)
		require.Truef(t, errors.Is(err, ErrUnsupportedType), "%T", v)
	}
	_, err := Value{}.SetCommand()
	require.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestDecodeResponse(t *testing.T) {
	testCases := []struct {
		frame string
		code  int
		text  string
		value Value
	}{
		{`{"Code":200,"Value":42}`, 200, "", IntValue(42)},
		{`{"Code":200,"Value":4.25}`, 200, "", FloatValue(4.25)},
		{`{"Code":200,"Value":1e3}`, 200, "", FloatValue(1000)},
		{`{"Code":200,"Value":false}`, 200, "", BoolValue(false)},
		{`{"Code":200,"Value":"x"}`, 200, "", StringValue("x")},
		{`{"Code":200,"Value":null}`, 200, "", Value{}},
		{`{"Code":200}`, 200, "", Value{}},
		{`{"Code":200,"Text":"192.168.1.7"}`, 200, "192.168.1.7", Value{}},
		{`{"Code":404,"Text":"no such key"}`, 404, "no such key", Value{}},
		{` {"Text":"no code"} `, 0, "no code", Value{}},
	}
	for _, tc := range testCases {
		t.Run(tc.frame, func(t *testing.T) {
			resp, err := DecodeResponse([]byte(tc.frame))
			require.NoError(t, err)
			require.Equal(t, tc.code, resp.Code)
			require.Equal(t, tc.text, resp.Text)
			require.Equal(t, tc.value, resp.Value)
			require.Equal(t, tc.value.IsValid(), resp.HasValue())
			if tc.code == CodeOK {
				require.NoError(t, resp.Err())
			} else {
				require.Equal(t, &PeerError{Code: tc.code, Text: tc.text}, resp.Err())
			}
		})
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	for _, frame := range []string{
		``,
		`not json`,
		"\xff\xfe",
		`null`,
		`[1,2]`,
		`42`,
		`{"Code":"200"}`,
		`{"Code":200,"Value":{"nested":1}}`,
		`{"Code":200`,
	} {
		_, err := DecodeResponse([]byte(frame))
		require.Truef(t, errors.Is(err, ErrMalformedFrame), "%q", frame)
	}
}

func TestResponseEncode(t *testing.T) {
	frame, err := (&Response{Code: 200, Value: IntValue(42)}).Encode()
	require.NoError(t, err)
	require.Equal(t, "{\"Code\":200,\"Value\":42}\n", string(frame))

	frame, err = (&Response{Code: 404, Text: "key not found"}).Encode()
	require.NoError(t, err)
	require.Equal(t, "{\"Code\":404,\"Text\":\"key not found\"}\n", string(frame))
}

func TestDecodeCommandErrors(t *testing.T) {
	for _, frame := range []string{`{}`, `{"Data":{}}`, `{"CMD":"SetInt","Data":{"Value":[1]}}`, "\xff"} {
		_, err := DecodeCommand([]byte(frame))
		require.Truef(t, errors.Is(err, ErrMalformedFrame), "%q", frame)
	}
}
