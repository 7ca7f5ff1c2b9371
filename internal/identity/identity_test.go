package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeMACSource struct {
	mac   MAC
	calls int
}

func (f *fakeMACSource) ReadMAC() (MAC, error) {
	f.calls++
	return f.mac, nil
}

func mustMAC(t *testing.T, s string) MAC {
	t.Helper()
	m, ok := ParseMAC(s)
	require.True(t, ok, "ParseMAC(%q)", s)
	return m
}

func TestMACStringRoundTrip(t *testing.T) {
	m := mustMAC(t, "aa:bb:cc:dd:ee:ff")
	require.Equal(t, "AA:BB:CC:DD:EE:FF", m.String())
}

func TestDirectoryLookups(t *testing.T) {
	macs := map[NodeID]MAC{
		0: mustMAC(t, "00:00:00:00:00:00"),
		1: mustMAC(t, "11:11:11:11:11:11"),
		2: mustMAC(t, "22:22:22:22:22:22"),
	}
	source := &fakeMACSource{mac: macs[0]}
	dir := NewDirectory(macs, 0, source)

	require.Equal(t, NodeID(0), dir.OwnID())

	mac, err := dir.OwnMAC()
	require.NoError(t, err)
	require.Equal(t, macs[0], mac)
	require.Equal(t, 1, source.calls, "OwnMAC must cache after first call")

	_, err = dir.OwnMAC()
	require.NoError(t, err)
	require.Equal(t, 1, source.calls, "second OwnMAC call must not re-read the source")

	got, ok := dir.IDToMAC(1)
	require.True(t, ok)
	require.Equal(t, macs[1], got)

	id, ok := dir.MACToID(macs[2])
	require.True(t, ok)
	require.Equal(t, NodeID(2), id)

	_, ok = dir.MACToID(mustMAC(t, "99:99:99:99:99:99"))
	require.False(t, ok)
}
