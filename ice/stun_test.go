package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTypeRoundTrip(t *testing.T) {
	cases := []struct {
		class  StunMessageClass
		method StunMethod
	}{
		{StunRequest, MethodBinding},
		{StunSuccessResponse, MethodBinding},
		{StunErrorResponse, MethodAllocate},
		{StunIndication, MethodRefresh},
	}
	for _, c := range cases {
		class, method := decomposeMessageType(composeMessageType(c.class, c.method))
		assert.Equal(t, c.class, class)
		assert.Equal(t, c.method, method)
	}
}

func TestStunSerializeParseRoundTrip(t *testing.T) {
	var buf [512]byte
	var txID TransactionID
	copy(txID[:], "0123456789AB")

	s, res := NewStunSerializer(buf[:], StunRequest, MethodBinding, txID)
	require.Equal(t, ResultOK, res)
	require.Equal(t, ResultOK, s.AddAttributeUsername("frag1:frag2"))
	require.Equal(t, ResultOK, s.AddAttributePriority(12345))

	d, res := ParseStunMessage(s.Bytes())
	require.Equal(t, ResultOK, res)
	assert.Equal(t, StunRequest, d.Class)
	assert.Equal(t, MethodBinding, d.Method)
	assert.Equal(t, txID, d.TransactionID)

	attr, ok := d.Find(attrUsername)
	require.True(t, ok)
	assert.Equal(t, "frag1:frag2", string(attr.Value))

	attr, ok = d.Find(attrPriority)
	require.True(t, ok)
	assert.Len(t, attr.Value, 4)
}

func TestStunAttributePadding(t *testing.T) {
	var buf [512]byte
	var txID TransactionID

	s, res := NewStunSerializer(buf[:], StunRequest, MethodBinding, txID)
	require.Equal(t, ResultOK, res)
	// 3-byte value needs one padding byte.
	require.Equal(t, ResultOK, s.AddAttributeUsername("abc"))
	require.Equal(t, ResultOK, s.AddAttributePriority(1))

	d, res := ParseStunMessage(s.Bytes())
	require.Equal(t, ResultOK, res)
	attrs := d.Attributes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "abc", string(attrs[0].Value))
}

func TestStunSerializerBufferTooSmall(t *testing.T) {
	var buf [20]byte
	var txID TransactionID
	s, res := NewStunSerializer(buf[:], StunRequest, MethodBinding, txID)
	require.Equal(t, ResultOK, res)
	assert.Equal(t, ResultStunErrorAddAttribute, s.AddAttributeUsername("too long for this buffer"))
}

func TestMessageIntegrityVerification(t *testing.T) {
	crypto := DefaultCryptoFunctions()
	key := []byte("secret-password")

	var buf [512]byte
	var txID TransactionID
	copy(txID[:], "0123456789AB")

	s, res := NewStunSerializer(buf[:], StunRequest, MethodBinding, txID)
	require.Equal(t, ResultOK, res)
	require.Equal(t, ResultOK, s.AddAttributeUsername("user"))
	require.Equal(t, ResultOK, s.AddMessageIntegrity(key, &crypto))
	require.Equal(t, ResultOK, s.AddFingerprint(&crypto))

	d, res := ParseStunMessage(s.Bytes())
	require.Equal(t, ResultOK, res)
	assert.True(t, d.VerifyMessageIntegrity(key, &crypto))
	assert.True(t, d.VerifyFingerprint(&crypto))

	assert.False(t, d.VerifyMessageIntegrity([]byte("wrong-password"), &crypto))
}

func TestXorAddressRoundTrip(t *testing.T) {
	var txID TransactionID
	copy(txID[:], "0123456789AB")

	addr := MakeIPv4TransportAddress(203, 0, 113, 5, 54321)
	encoded := encodeXorAddress(addr, txID)
	decoded, res := decodeXorAddress(encoded, txID)
	require.Equal(t, ResultOK, res)
	assert.Equal(t, addr.Port, decoded.Port)
	assert.True(t, SameIPAddress(addr, decoded))
}

func TestParseErrorCode(t *testing.T) {
	var buf [512]byte
	var txID TransactionID
	s, res := NewStunSerializer(buf[:], StunErrorResponse, MethodAllocate, txID)
	require.Equal(t, ResultOK, res)
	require.Equal(t, ResultOK, s.AddAttributeErrorCode(401, "Unauthorized"))

	d, res := ParseStunMessage(s.Bytes())
	require.Equal(t, ResultOK, res)
	attr, ok := d.Find(attrErrorCode)
	require.True(t, ok)

	code, reason, res := ParseErrorCode(attr.Value)
	require.Equal(t, ResultOK, res)
	assert.Equal(t, 401, code)
	assert.Equal(t, "Unauthorized", reason)
}
