package ice

import (
	"encoding/binary"
)

// STUN (RFC 5389) wire format:
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|0 0|     STUN Message Type     |         Message Length        |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                         Magic Cookie                          |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                     Transaction ID (96 bits)                  |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+

const (
	stunHeaderLength = 20
	stunMagicCookie  = 0x2112A442
)

var stunMagicCookieBytes = [4]byte{0x21, 0x12, 0xA4, 0x42}
var stunFingerprintXor uint32 = 0x5354554E

// StunMessageClass is the 2-bit class field of a STUN message type.
type StunMessageClass uint16

const (
	StunRequest         StunMessageClass = 0
	StunIndication      StunMessageClass = 1
	StunSuccessResponse StunMessageClass = 2
	StunErrorResponse   StunMessageClass = 3
)

// StunMethod is the 12-bit method field of a STUN message type.
type StunMethod uint16

const (
	MethodBinding          StunMethod = 0x1
	MethodAllocate         StunMethod = 0x3
	MethodRefresh          StunMethod = 0x4
	MethodCreatePermission StunMethod = 0x8
	MethodChannelBind      StunMethod = 0x9
)

// Message type field bit layout (RFC 5389 §6, Figure 3).
const (
	classMask1  = 0x0100
	classMask2  = 0x0010
	methodMask1 = 0x3E00
	methodMask2 = 0x00E0
	methodMask3 = 0x000F
)

func composeMessageType(class StunMessageClass, method StunMethod) uint16 {
	c, m := uint16(class), uint16(method)
	t := (c<<7)&classMask1 | (c<<4)&classMask2
	t |= (m<<2)&methodMask1 | (m<<1)&methodMask2 | (m & methodMask3)
	return t
}

func decomposeMessageType(t uint16) (StunMessageClass, StunMethod) {
	class := (t&classMask1)>>7 | (t&classMask2)>>4
	method := (t&methodMask1)>>2 | (t&methodMask2)>>1 | (t & methodMask3)
	return StunMessageClass(class), StunMethod(method)
}

func pad4(n int) int {
	return -n & 3
}

// StunAttribute is a parsed STUN TLV attribute. Value aliases the bytes of
// the deserializer's input buffer; callers that need to retain it past the
// deserializer's lifetime should copy it.
type StunAttribute struct {
	Type  uint16
	Value []byte
}

// StunSerializer builds a STUN message in place inside a caller-provided
// buffer (spec §5 "all message buffers are caller-supplied"). It never
// grows buf; AddAttribute returns ResultStunErrorAddAttribute if buf is too
// small.
type StunSerializer struct {
	buf           []byte
	length        int // bytes written so far, including the 20-byte header
	transactionID TransactionID
}

// NewStunSerializer writes a STUN header into buf and returns a serializer
// ready to accept attributes. buf must be at least stunHeaderLength bytes;
// spec §5 recommends at least ~512 bytes for realistic TURN requests.
func NewStunSerializer(buf []byte, class StunMessageClass, method StunMethod, txID TransactionID) (*StunSerializer, IceResult) {
	if len(buf) < stunHeaderLength {
		return nil, ResultStunError
	}
	s := &StunSerializer{buf: buf, length: stunHeaderLength, transactionID: txID}
	binary.BigEndian.PutUint16(buf[0:2], composeMessageType(class, method))
	binary.BigEndian.PutUint16(buf[2:4], 0)
	copy(buf[4:8], stunMagicCookieBytes[:])
	copy(buf[8:20], txID[:])
	return s, ResultOK
}

func (s *StunSerializer) setHeaderLength() {
	binary.BigEndian.PutUint16(s.buf[2:4], uint16(s.length-stunHeaderLength))
}

// AddAttribute appends a raw TLV attribute (type, value, padding to a
// 4-byte boundary), updating the header's length field.
func (s *StunSerializer) AddAttribute(attrType uint16, value []byte) IceResult {
	padded := pad4(len(value))
	need := 4 + len(value) + padded
	if s.length+need > len(s.buf) {
		return ResultStunErrorAddAttribute
	}
	binary.BigEndian.PutUint16(s.buf[s.length:s.length+2], attrType)
	binary.BigEndian.PutUint16(s.buf[s.length+2:s.length+4], uint16(len(value)))
	copy(s.buf[s.length+4:], value)
	for i := 0; i < padded; i++ {
		s.buf[s.length+4+len(value)+i] = 0
	}
	s.length += need
	s.setHeaderLength()
	return ResultOK
}

// GetIntegrityBuffer reserves space for a MESSAGE-INTEGRITY attribute (by
// appending a zeroed placeholder of the correct size) and returns the
// prefix of the buffer the HMAC must be computed over: everything written
// before the placeholder, with the header length already updated to
// include it (spec §4.C). The placeholder's value bytes are filled in by a
// subsequent call to AddMessageIntegrityValue.
func (s *StunSerializer) GetIntegrityBuffer() ([]byte, IceResult) {
	start := s.length
	if res := s.AddAttribute(attrMessageIntegrity, make([]byte, 20)); res != ResultOK {
		return nil, res
	}
	return s.buf[:start], ResultOK
}

// AddMessageIntegrityValue writes a computed 20-byte HMAC into the
// placeholder most recently reserved by GetIntegrityBuffer.
func (s *StunSerializer) AddMessageIntegrityValue(mac []byte) IceResult {
	if len(mac) != 20 {
		return ResultHmacError
	}
	copy(s.buf[s.length-20:s.length], mac)
	return ResultOK
}

// AddMessageIntegrity computes and appends MESSAGE-INTEGRITY, keyed by key,
// using the injected HMAC-SHA1 primitive.
func (s *StunSerializer) AddMessageIntegrity(key []byte, crypto *CryptoFunctions) IceResult {
	if len(key) == 0 {
		return ResultOK
	}
	prefix, res := s.GetIntegrityBuffer()
	if res != ResultOK {
		return res
	}
	var mac [20]byte
	if res := crypto.HMACSHA1(key, prefix, mac[:]); res != ResultOK {
		return res
	}
	return s.AddMessageIntegrityValue(mac[:])
}

// GetFingerprintBuffer reserves space for a FINGERPRINT attribute and
// returns the prefix the CRC-32 must be computed over, following the same
// contract as GetIntegrityBuffer. FINGERPRINT is always the last attribute
// in a message (spec §4.C).
func (s *StunSerializer) GetFingerprintBuffer() ([]byte, IceResult) {
	start := s.length
	if res := s.AddAttribute(attrFingerprint, make([]byte, 4)); res != ResultOK {
		return nil, res
	}
	return s.buf[:start], ResultOK
}

// AddFingerprint computes and appends FINGERPRINT: CRC-32 of the message so
// far, XORed with 0x5354554E.
func (s *StunSerializer) AddFingerprint(crypto *CryptoFunctions) IceResult {
	prefix, res := s.GetFingerprintBuffer()
	if res != ResultOK {
		return res
	}
	crc, res := crypto.CRC32(0, prefix)
	if res != ResultOK {
		return res
	}
	binary.BigEndian.PutUint32(s.buf[s.length-4:s.length], crc^stunFingerprintXor)
	return ResultOK
}

// Bytes returns the serialized message (the written prefix of buf).
func (s *StunSerializer) Bytes() []byte {
	return s.buf[:s.length]
}

// Len returns the number of bytes written so far.
func (s *StunSerializer) Len() int {
	return s.length
}

// StunDeserializer parses a STUN message out of a caller-provided buffer
// without copying attribute values (they alias buf).
type StunDeserializer struct {
	buf           []byte
	Class         StunMessageClass
	Method        StunMethod
	TransactionID TransactionID

	pos int // read cursor into buf, starts at stunHeaderLength
}

// ParseStunMessage parses the STUN header and validates the magic cookie.
// It does not parse attributes eagerly; call GetNextAttribute to iterate.
func ParseStunMessage(buf []byte) (*StunDeserializer, IceResult) {
	if len(buf) < stunHeaderLength {
		return nil, ResultStunError
	}
	messageType := binary.BigEndian.Uint16(buf[0:2])
	if messageType>>14 != 0 {
		return nil, ResultStunError
	}
	length := binary.BigEndian.Uint16(buf[2:4])
	if int(length)%4 != 0 || stunHeaderLength+int(length) > len(buf) {
		return nil, ResultStunError
	}
	if binary.BigEndian.Uint32(buf[4:8]) != stunMagicCookie {
		return nil, ResultStunError
	}

	class, method := decomposeMessageType(messageType)
	d := &StunDeserializer{
		buf:    buf[:stunHeaderLength+int(length)],
		Class:  class,
		Method: method,
		pos:    stunHeaderLength,
	}
	copy(d.TransactionID[:], buf[8:20])
	return d, ResultOK
}

// GetNextAttribute returns the next attribute in the message, along with
// the byte offset (from the start of the message) at which it begins --
// callers verifying MESSAGE-INTEGRITY/FINGERPRINT need that offset to
// recompute the hash over the correct prefix. ok is false once there are no
// more attributes (NO_MORE_ATTRIBUTE_FOUND in spec §4.C's terms).
func (d *StunDeserializer) GetNextAttribute() (attr StunAttribute, offset int, ok bool) {
	if d.pos+4 > len(d.buf) {
		return StunAttribute{}, 0, false
	}
	offset = d.pos
	attrType := binary.BigEndian.Uint16(d.buf[d.pos : d.pos+2])
	length := int(binary.BigEndian.Uint16(d.buf[d.pos+2 : d.pos+4]))
	valueStart := d.pos + 4
	if valueStart+length > len(d.buf) {
		return StunAttribute{}, 0, false
	}
	value := d.buf[valueStart : valueStart+length]
	d.pos = valueStart + length + pad4(length)
	return StunAttribute{Type: attrType, Value: value}, offset, true
}

// Attributes parses and returns every attribute in the message.
func (d *StunDeserializer) Attributes() []StunAttribute {
	var attrs []StunAttribute
	pos := d.pos
	d.pos = stunHeaderLength
	for {
		attr, _, ok := d.GetNextAttribute()
		if !ok {
			break
		}
		attrs = append(attrs, attr)
	}
	d.pos = pos
	return attrs
}

// Find returns the first attribute of the given type, if present.
func (d *StunDeserializer) Find(attrType uint16) (StunAttribute, bool) {
	for _, a := range d.Attributes() {
		if a.Type == attrType {
			return a, true
		}
	}
	return StunAttribute{}, false
}

// VerifyMessageIntegrity recomputes HMAC-SHA1 over the prefix preceding the
// MESSAGE-INTEGRITY attribute and compares it with hmacEqual, which
// examines every byte rather than stopping at the first difference.
//
// RFC 5389 §15.4: the HMAC is computed with the STUN header length field
// set as though MESSAGE-INTEGRITY were the last attribute, even when
// FINGERPRINT follows it on the wire. The header length byte still carries
// the message's real, final length (covering FINGERPRINT too), so it has to
// be patched down to the MI-only length for the duration of the hash and
// restored afterward -- otherwise this recomputes a different HMAC than the
// sender signed and every message carrying both attributes fails to verify.
func (d *StunDeserializer) VerifyMessageIntegrity(key []byte, crypto *CryptoFunctions) bool {
	pos := d.pos
	d.pos = stunHeaderLength
	defer func() { d.pos = pos }()

	for {
		attr, offset, ok := d.GetNextAttribute()
		if !ok {
			return false
		}
		if attr.Type == attrMessageIntegrity {
			if len(attr.Value) != 20 {
				return false
			}
			savedLength := binary.BigEndian.Uint16(d.buf[2:4])
			binary.BigEndian.PutUint16(d.buf[2:4], uint16(offset+24-stunHeaderLength))
			var mac [20]byte
			res := crypto.HMACSHA1(key, d.buf[:offset], mac[:])
			binary.BigEndian.PutUint16(d.buf[2:4], savedLength)
			if res != ResultOK {
				return false
			}
			return hmacEqual(mac[:], attr.Value)
		}
	}
}

// VerifyFingerprint recomputes the CRC-32 over the prefix preceding the
// FINGERPRINT attribute and compares it.
func (d *StunDeserializer) VerifyFingerprint(crypto *CryptoFunctions) bool {
	pos := d.pos
	d.pos = stunHeaderLength
	defer func() { d.pos = pos }()

	for {
		attr, offset, ok := d.GetNextAttribute()
		if !ok {
			return false
		}
		if attr.Type == attrFingerprint {
			if len(attr.Value) != 4 {
				return false
			}
			crc, res := crypto.CRC32(0, d.buf[:offset])
			if res != ResultOK {
				return false
			}
			want := binary.BigEndian.Uint32(attr.Value)
			return crc^stunFingerprintXor == want
		}
	}
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
