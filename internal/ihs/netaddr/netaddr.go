// Package netaddr implements the tagged-union IP address / socket address
// type described by spec.md §3: either a 4-byte IPv4 or a 16-byte IPv6
// address, plus a 16-bit port. Comparable and printable.
package netaddr

import (
	"fmt"
	"net"
)

// Family distinguishes the address kind held by an Address.
type Family uint8

const (
	IPv4 Family = 4
	IPv6 Family = 16
)

// Address is a comparable tagged union of an IPv4 or IPv6 address plus a
// port. Two Addresses compare equal with == iff family, bytes, and port
// all match (array fields make the struct comparable).
type Address struct {
	family Family
	v4     [4]byte
	v6     [16]byte
	port   uint16
}

// FromIPv4 builds an Address from four octets and a port.
func FromIPv4(a, b, c, d byte, port uint16) Address {
	return Address{family: IPv4, v4: [4]byte{a, b, c, d}, port: port}
}

// FromIPv6 builds an Address from 16 bytes and a port.
func FromIPv6(addr [16]byte, port uint16) Address {
	return Address{family: IPv6, v6: addr, port: port}
}

// FromUDPAddr converts a *net.UDPAddr at the boundary to the standard
// library's socket API.
func FromUDPAddr(u *net.UDPAddr) (Address, error) {
	if u == nil {
		return Address{}, fmt.Errorf("netaddr: nil UDPAddr")
	}
	if ip4 := u.IP.To4(); ip4 != nil {
		return FromIPv4(ip4[0], ip4[1], ip4[2], ip4[3], uint16(u.Port)), nil
	}
	ip16 := u.IP.To16()
	if ip16 == nil {
		return Address{}, fmt.Errorf("netaddr: invalid IP %v", u.IP)
	}
	var v [16]byte
	copy(v[:], ip16)
	return FromIPv6(v, uint16(u.Port)), nil
}

// Family reports whether this is an IPv4 or IPv6 address.
func (a Address) Family() Family { return a.family }

// Port returns the 16-bit port.
func (a Address) Port() uint16 { return a.port }

// IP returns the address bytes as a net.IP.
func (a Address) IP() net.IP {
	if a.family == IPv4 {
		return net.IPv4(a.v4[0], a.v4[1], a.v4[2], a.v4[3])
	}
	b := make(net.IP, 16)
	copy(b, a.v6[:])
	return b
}

// UDPAddr converts to a *net.UDPAddr for use with net.UDPConn.
func (a Address) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: a.IP(), Port: int(a.port)}
}

// String renders "ip:port".
func (a Address) String() string {
	return net.JoinHostPort(a.IP().String(), fmt.Sprintf("%d", a.port))
}

// Equal reports whether two addresses are identical. Provided alongside ==
// for readability at call sites; Address is itself comparable.
func (a Address) Equal(o Address) bool { return a == o }
