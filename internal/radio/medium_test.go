package radio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediumBroadcastDeliversWithConfiguredRSSI(t *testing.T) {
	m := NewMedium(nil)
	a := m.Join("a")
	b := m.Join("b")
	m.SetRSSI("a", "b", -55)

	require.NoError(t, a.Send(context.Background(), []byte("hello")))

	payload, rssi, ok := ReadFrame(b)
	require.True(t, ok)
	require.Equal(t, "hello", string(payload))
	require.Equal(t, -55, rssi)

	_, _, ok = ReadFrame(a)
	require.False(t, ok, "sender must not receive its own broadcast")
}

func TestMediumUnconfiguredPairDropsFrame(t *testing.T) {
	m := NewMedium(nil)
	a := m.Join("a")
	c := m.Join("c")
	// no SetRSSI("a", "c", ...): out of range

	require.NoError(t, a.Send(context.Background(), []byte("hi")))

	_, _, ok := ReadFrame(c)
	require.False(t, ok)
}
