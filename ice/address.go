// Package ice implements the core protocol engine of an Interactive
// Connectivity Establishment agent (RFC 8445, formerly RFC 5245), together
// with the STUN (RFC 5389) and TURN (RFC 5766) message exchange logic it
// drives.
//
// The engine performs no socket I/O, starts no goroutines, and sets no
// timers. It consumes inbound datagrams and candidate configuration, and
// produces outbound STUN/TURN messages plus state transitions. Callers own
// transport, retransmission, and timing; see cmd/iceagentd for a minimal
// embedder.
package ice

import "fmt"

// Family identifies the IP address family of a TransportAddress.
type Family uint8

const (
	FamilyIPv4 Family = 4
	FamilyIPv6 Family = 6
)

// Protocol identifies the transport protocol underlying a TransportAddress.
type Protocol uint8

const (
	ProtoUDP Protocol = iota
	ProtoTCP
)

// TransportAddress is a byte-exact representation of an IP address, port,
// and address family. Only the first 4 bytes of Address are significant
// when Family is FamilyIPv4; RFC 8445 §5.3.
type TransportAddress struct {
	Family   Family
	Protocol Protocol
	Port     uint16
	Address  [16]byte
}

// addressLen returns the number of significant bytes in the Address field.
func (a TransportAddress) addressLen() int {
	if a.Family == FamilyIPv6 {
		return 16
	}
	return 4
}

// SameTransportAddress reports whether a and b refer to the same family,
// port, and address bytes (RFC 8445's "identical" transport addresses, used
// to match a received datagram's source against an existing pair).
func SameTransportAddress(a, b TransportAddress) bool {
	if a.Family != b.Family || a.Port != b.Port {
		return false
	}
	return sameAddressBytes(a, b)
}

// SameIPAddress is identical to SameTransportAddress but ignores port.
func SameIPAddress(a, b TransportAddress) bool {
	if a.Family != b.Family {
		return false
	}
	return sameAddressBytes(a, b)
}

func sameAddressBytes(a, b TransportAddress) bool {
	n := a.addressLen()
	for i := 0; i < n; i++ {
		if a.Address[i] != b.Address[i] {
			return false
		}
	}
	return true
}

func (a TransportAddress) String() string {
	n := a.addressLen()
	if a.Family == FamilyIPv4 {
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Address[0], a.Address[1], a.Address[2], a.Address[3], a.Port)
	}
	return fmt.Sprintf("[%x]:%d", a.Address[:n], a.Port)
}

// MakeIPv4TransportAddress builds a TransportAddress from 4 octets and a port.
func MakeIPv4TransportAddress(a, b, c, d byte, port uint16) TransportAddress {
	ta := TransportAddress{Family: FamilyIPv4, Protocol: ProtoUDP, Port: port}
	ta.Address[0], ta.Address[1], ta.Address[2], ta.Address[3] = a, b, c, d
	return ta
}

// Endpoint is a transport address together with the "is this link
// point-to-point" flag that zeroes the local-preference term of the
// priority formula (RFC 8445 §5.1.2.2) when both endpoints of a candidate
// are on the same link.
type Endpoint struct {
	TransportAddress TransportAddress
	IsPointToPoint   bool
}
