package sh

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/winot.go/pkg/bridge"
)

func TestParseValue(t *testing.T) {
	testCases := []struct {
		arg   string
		kind  string
		value bridge.Value
	}{
		{"42", "", bridge.IntValue(42)},
		{"-3", "", bridge.IntValue(-3)},
		{"2.5", "", bridge.FloatValue(2.5)},
		{"1e3", "", bridge.FloatValue(1000)},
		{"true", "", bridge.BoolValue(true)},
		{"t", "", bridge.StringValue("t")},
		{"hello", "", bridge.StringValue("hello")},
		{"0x10", "int", bridge.IntValue(16)},
		{"3", "float", bridge.FloatValue(3)},
		{"1", "bool", bridge.BoolValue(true)},
		{"42", "string", bridge.StringValue("42")},
		{"NaN", "", bridge.FloatValue(math.NaN())},
	}
	for _, tc := range testCases {
		t.Run(tc.arg+"/"+tc.kind, func(t *testing.T) {
			v, err := ParseValue(tc.arg, tc.kind)
			require.NoError(t, err)
			require.Equal(t, tc.value.Kind(), v.Kind())
			require.Equal(t, tc.value.String(), v.String())
		})
	}

	for _, kind := range []string{"int", "float", "bool"} {
		_, err := ParseValue("abc", kind)
		require.Error(t, err, kind)
	}
	_, err := ParseValue("1", "list")
	require.True(t, errors.Is(err, bridge.ErrUnsupportedType))
}
