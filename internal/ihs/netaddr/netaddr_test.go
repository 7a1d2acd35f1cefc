package netaddr

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromIPv4RoundTrip(t *testing.T) {
	a := FromIPv4(192, 168, 1, 10, 27036)
	require.Equal(t, IPv4, a.Family())
	require.Equal(t, uint16(27036), a.Port())
	require.Equal(t, "192.168.1.10:27036", a.String())
}

func TestFromUDPAddrAndBack(t *testing.T) {
	u := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 1234}
	a, err := FromUDPAddr(u)
	require.NoError(t, err)
	require.Equal(t, IPv4, a.Family())
	back := a.UDPAddr()
	require.True(t, back.IP.Equal(u.IP))
	require.Equal(t, u.Port, back.Port)
}

func TestEqualityAndComparable(t *testing.T) {
	a1 := FromIPv4(1, 2, 3, 4, 100)
	a2 := FromIPv4(1, 2, 3, 4, 100)
	a3 := FromIPv4(1, 2, 3, 5, 100)
	require.True(t, a1 == a2)
	require.True(t, a1.Equal(a2))
	require.False(t, a1 == a3)

	set := map[Address]bool{a1: true}
	require.True(t, set[a2])
	require.False(t, set[a3])
}

func TestIPv6(t *testing.T) {
	var raw [16]byte
	raw[15] = 1
	a := FromIPv6(raw, 443)
	require.Equal(t, IPv6, a.Family())
	require.Equal(t, "::1", a.IP().String())
}
