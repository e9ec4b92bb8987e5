package ice

import "fmt"

// Bounds for TURN channel numbers (RFC 5766 §2.5). The original C library
// (source/include/ice_data_types.h) calls these
// ICE_DEFAULT_TURN_CHANNEL_NUMBER_MIN/MAX; invariant I5 requires
// nextAvailableTurnChannelNumber stay within this range.
const (
	DefaultTurnChannelNumberMin uint16 = 0x4000
	DefaultTurnChannelNumberMax uint16 = 0x7FFE
)

// DefaultTurnAllocationLifetimeSeconds is the lifetime every
// AllocationRequest asks for, and the lifetime assumed when an Allocate or
// Refresh success response carries no LIFETIME attribute (600s in the
// original C library). RefreshRequest always takes an explicit lifetime.
const DefaultTurnAllocationLifetimeSeconds uint32 = 600

// DefaultTurnPermissionLifetimeSeconds is how long a CreatePermission
// installs a permission for before HandleTurnAllocateSuccess-driven traffic
// needs a fresh one (RFC 5766 §8, 300s).
const DefaultTurnPermissionLifetimeSeconds uint64 = 300

// TurnServer holds a Relay candidate's TURN session state: its long-term
// credentials, the realm/nonce learned from the 401 challenge, the derived
// long-term key, and allocation bookkeeping (spec §3 "pTurnServer").
type TurnServer struct {
	Username string
	Password string
	Realm    string
	Nonce    string

	// LongTermKey is MD5("user:realm:pass"), recomputed whenever Realm is
	// updated by a 401/438 challenge response (spec §4.E).
	LongTermKey [16]byte
	HasKey      bool

	NextAvailableChannelNumber  uint16
	AllocationExpirationSeconds uint64
}

// DeriveLongTermKey computes MD5("user:realm:pass") via the injected MD5
// primitive and stores it on the TurnServer block. Called by
// AllocationRequest when a realm is known but no key has been derived yet,
// and again on every 401/438 challenge response that carries a realm
// (spec §4.E).
func (ts *TurnServer) DeriveLongTermKey(crypto *CryptoFunctions) IceResult {
	material := fmt.Sprintf("%s:%s:%s", ts.Username, ts.Realm, ts.Password)
	if res := crypto.MD5([]byte(material), ts.LongTermKey[:]); res != ResultOK {
		return res
	}
	ts.HasKey = true
	return ResultOK
}

// nextChannelNumber consumes and returns the next TURN channel number,
// advancing the counter. Returns ResultMaxChannelNumberThreshold once the
// bound is exhausted (invariant I5).
func (ts *TurnServer) nextChannelNumber() (uint16, IceResult) {
	if ts.NextAvailableChannelNumber == 0 {
		ts.NextAvailableChannelNumber = DefaultTurnChannelNumberMin
	}
	if ts.NextAvailableChannelNumber > DefaultTurnChannelNumberMax {
		return 0, ResultMaxChannelNumberThreshold
	}
	n := ts.NextAvailableChannelNumber
	ts.NextAvailableChannelNumber++
	return n, ResultOK
}
