package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameTransportAddress(t *testing.T) {
	a := MakeIPv4TransportAddress(192, 168, 1, 1, 12345)
	b := MakeIPv4TransportAddress(192, 168, 1, 1, 12345)
	c := MakeIPv4TransportAddress(192, 168, 1, 1, 12346)
	d := MakeIPv4TransportAddress(192, 168, 1, 2, 12345)

	assert.True(t, SameTransportAddress(a, b))
	assert.False(t, SameTransportAddress(a, c))
	assert.False(t, SameTransportAddress(a, d))
}

func TestSameIPAddress(t *testing.T) {
	a := MakeIPv4TransportAddress(192, 168, 1, 1, 12345)
	b := MakeIPv4TransportAddress(192, 168, 1, 1, 6789)

	assert.True(t, SameIPAddress(a, b))
	assert.False(t, SameTransportAddress(a, b))
}

func TestTransportAddressString(t *testing.T) {
	a := MakeIPv4TransportAddress(192, 168, 1, 1, 12345)
	assert.Equal(t, "192.168.1.1:12345", a.String())
}

func TestAddressLen(t *testing.T) {
	v4 := MakeIPv4TransportAddress(1, 2, 3, 4, 1)
	v6 := TransportAddress{Family: FamilyIPv6}
	assert.Equal(t, 4, v4.addressLen())
	assert.Equal(t, 16, v6.addressLen())
}
