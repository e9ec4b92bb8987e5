package ice

import "encoding/binary"

// STUN/TURN/ICE attribute types used by this engine (RFC 5389 §15,
// RFC 5766 §14, RFC 5245 §19.1). Comprehension-required attributes the
// engine never emits or consumes (e.g. UNKNOWN-ATTRIBUTES, SOFTWARE) are
// omitted.
const (
	attrMappedAddress       uint16 = 0x0001
	attrUsername            uint16 = 0x0006
	attrMessageIntegrity    uint16 = 0x0008
	attrErrorCode           uint16 = 0x0009
	attrChannelNumber       uint16 = 0x000C
	attrLifetime            uint16 = 0x000D
	attrXorPeerAddress      uint16 = 0x0012
	attrRealm               uint16 = 0x0014
	attrNonce               uint16 = 0x0015
	attrXorRelayedAddress   uint16 = 0x0016
	attrRequestedTransport  uint16 = 0x0019
	attrXorMappedAddress    uint16 = 0x0020
	attrPriority            uint16 = 0x0024
	attrUseCandidate        uint16 = 0x0025
	attrFingerprint         uint16 = 0x8028
	attrIceControlled       uint16 = 0x8029
	attrIceControlling      uint16 = 0x802A
)

// protoUDPNumber is the value of REQUESTED-TRANSPORT's protocol octet for
// UDP (RFC 5766 §14.7): the IANA protocol number for UDP, left-shifted into
// the high byte of a 4-byte field.
const protoUDPNumber = 17

func requestedTransportValue() [4]byte {
	return [4]byte{protoUDPNumber, 0, 0, 0}
}

// encodeXorAddress encodes a TransportAddress as an XOR-MAPPED-ADDRESS
// style attribute value (RFC 5389 §15.2): family, XOR'd port, then XOR'd
// address bytes. For IPv6 the full 16-byte transaction ID (magic cookie +
// transaction ID) is the XOR mask; for IPv4 only the magic cookie is.
func encodeXorAddress(addr TransportAddress, txID TransactionID) []byte {
	n := addr.addressLen()
	out := make([]byte, 4+n)
	out[0] = 0
	switch addr.Family {
	case FamilyIPv4:
		out[1] = 0x01
	case FamilyIPv6:
		out[1] = 0x02
	}
	binary.BigEndian.PutUint16(out[2:4], addr.Port^uint16(stunMagicCookie>>16))

	var mask [16]byte
	copy(mask[0:4], stunMagicCookieBytes[:])
	copy(mask[4:16], txID[:])
	for i := 0; i < n; i++ {
		out[4+i] = addr.Address[i] ^ mask[i]
	}
	return out
}

// decodeXorAddress is the inverse of encodeXorAddress.
func decodeXorAddress(value []byte, txID TransactionID) (TransportAddress, IceResult) {
	if len(value) < 4 {
		return TransportAddress{}, ResultStunError
	}
	var family Family
	switch value[1] {
	case 0x01:
		family = FamilyIPv4
	case 0x02:
		family = FamilyIPv6
	default:
		return TransportAddress{}, ResultStunError
	}
	n := 4
	if family == FamilyIPv6 {
		n = 16
	}
	if len(value) < 4+n {
		return TransportAddress{}, ResultStunError
	}
	port := binary.BigEndian.Uint16(value[2:4]) ^ uint16(stunMagicCookie>>16)

	var mask [16]byte
	copy(mask[0:4], stunMagicCookieBytes[:])
	copy(mask[4:16], txID[:])

	addr := TransportAddress{Family: family, Protocol: ProtoUDP, Port: port}
	for i := 0; i < n; i++ {
		addr.Address[i] = value[4+i] ^ mask[i]
	}
	return addr, ResultOK
}

// AddAttributeXorMappedAddress appends an XOR-MAPPED-ADDRESS attribute.
func (s *StunSerializer) AddAttributeXorMappedAddress(addr TransportAddress) IceResult {
	return s.AddAttribute(attrXorMappedAddress, encodeXorAddress(addr, s.transactionID))
}

// AddAttributeXorPeerAddress appends an XOR-PEER-ADDRESS attribute (TURN
// CreatePermission/ChannelBind/Data).
func (s *StunSerializer) AddAttributeXorPeerAddress(addr TransportAddress) IceResult {
	return s.AddAttribute(attrXorPeerAddress, encodeXorAddress(addr, s.transactionID))
}

// AddAttributeXorRelayedAddress appends an XOR-RELAYED-ADDRESS attribute
// (TURN Allocate success response).
func (s *StunSerializer) AddAttributeXorRelayedAddress(addr TransportAddress) IceResult {
	return s.AddAttribute(attrXorRelayedAddress, encodeXorAddress(addr, s.transactionID))
}

// AddAttributeUsername appends a USERNAME attribute.
func (s *StunSerializer) AddAttributeUsername(username string) IceResult {
	return s.AddAttribute(attrUsername, []byte(username))
}

// AddAttributeRealm appends a REALM attribute.
func (s *StunSerializer) AddAttributeRealm(realm string) IceResult {
	return s.AddAttribute(attrRealm, []byte(realm))
}

// AddAttributeNonce appends a NONCE attribute.
func (s *StunSerializer) AddAttributeNonce(nonce string) IceResult {
	return s.AddAttribute(attrNonce, []byte(nonce))
}

// AddAttributePriority appends a PRIORITY attribute.
func (s *StunSerializer) AddAttributePriority(priority uint32) IceResult {
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], priority)
	return s.AddAttribute(attrPriority, v[:])
}

// AddAttributeUseCandidate appends a zero-length USE-CANDIDATE attribute.
func (s *StunSerializer) AddAttributeUseCandidate() IceResult {
	return s.AddAttribute(attrUseCandidate, nil)
}

// AddAttributeIceControlling appends an ICE-CONTROLLING attribute carrying
// the tiebreaker value.
func (s *StunSerializer) AddAttributeIceControlling(tieBreaker uint64) IceResult {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], tieBreaker)
	return s.AddAttribute(attrIceControlling, v[:])
}

// AddAttributeIceControlled appends an ICE-CONTROLLED attribute carrying
// the tiebreaker value.
func (s *StunSerializer) AddAttributeIceControlled(tieBreaker uint64) IceResult {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], tieBreaker)
	return s.AddAttribute(attrIceControlled, v[:])
}

// AddAttributeLifetime appends a LIFETIME attribute (seconds).
func (s *StunSerializer) AddAttributeLifetime(seconds uint32) IceResult {
	var v [4]byte
	binary.BigEndian.PutUint32(v[:], seconds)
	return s.AddAttribute(attrLifetime, v[:])
}

// AddAttributeRequestedTransport appends a REQUESTED-TRANSPORT attribute
// requesting UDP, the only transport this engine's TURN client uses.
func (s *StunSerializer) AddAttributeRequestedTransport() IceResult {
	v := requestedTransportValue()
	return s.AddAttribute(attrRequestedTransport, v[:])
}

// AddAttributeChannelNumber appends a CHANNEL-NUMBER attribute; the first
// two bytes of value are the channel number, the last two are reserved (0).
func (s *StunSerializer) AddAttributeChannelNumber(channel uint16) IceResult {
	var v [4]byte
	binary.BigEndian.PutUint16(v[0:2], channel)
	return s.AddAttribute(attrChannelNumber, v[:])
}

// ParseErrorCode decodes a STUN ERROR-CODE attribute value into its numeric
// code (class*100+number) and reason phrase (RFC 5389 §15.6).
func ParseErrorCode(value []byte) (code int, reason string, res IceResult) {
	if len(value) < 4 {
		return 0, "", ResultStunError
	}
	class := int(value[2] & 0x07)
	number := int(value[3])
	return class*100 + number, string(value[4:]), ResultOK
}

// AddAttributeErrorCode appends an ERROR-CODE attribute.
func (s *StunSerializer) AddAttributeErrorCode(code int, reason string) IceResult {
	v := make([]byte, 4+len(reason))
	v[2] = byte(code / 100)
	v[3] = byte(code % 100)
	copy(v[4:], reason)
	return s.AddAttribute(attrErrorCode, v)
}
