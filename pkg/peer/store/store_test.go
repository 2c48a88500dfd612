package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/winot.go/pkg/bridge"
)

func TestJoin(t *testing.T) {
	require.Equal(t, "k", Join("", "k"))
	require.Equal(t, "robots/k", Join("robots", "k"))
	require.Equal(t, "robots/k", Join("robots/", "k"))
	require.Equal(t, "robots/", Join("robots", ""))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, ok, err := s.Get(ctx, "a/x")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "a/x", bridge.IntValue(1)))
	require.NoError(t, s.Set(ctx, "a/y", bridge.StringValue("y")))
	require.NoError(t, s.Set(ctx, "ab/z", bridge.BoolValue(true)))
	require.NoError(t, s.Set(ctx, "b/x", bridge.FloatValue(1.5)))
	v, ok, err := s.Get(ctx, "a/x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, bridge.IntValue(1), v)

	require.NoError(t, s.Delete(ctx, "a/y"))
	require.NoError(t, s.Delete(ctx, "missing"))
	require.Equal(t, []string{"a/x", "ab/z", "b/x"}, s.Keys())

	n, err := s.DeleteTree(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"ab/z", "b/x"}, s.Keys())

	n, err = s.DeleteTree(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Empty(t, s.Keys())
}

func TestRedisTreePattern(t *testing.T) {
	r := NewRedisStore("localhost:6379")
	defer r.Close()
	require.Equal(t, `winot:robots/*`, r.treePattern("robots"))
	require.Equal(t, `winot:*`, r.treePattern(""))
	require.Equal(t, `winot:a\*b\?\[c\]/*`, r.treePattern("a*b?[c]"))
}
