package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoAgents builds a controlling agent A and a controlled agent B, each
// with a host candidate, the other's host candidate already signaled, and
// one candidate pair formed -- the state a real handshake would reach
// after offer/answer exchange, before any connectivity check is sent.
func twoAgents(t *testing.T) (a, b *Context, addrA, addrB TransportAddress) {
	t.Helper()
	addrA = MakeIPv4TransportAddress(10, 0, 0, 1, 4000)
	addrB = MakeIPv4TransportAddress(10, 0, 0, 2, 5000)

	a = newTestContextWithCredentials(t, true, "ufragA", "pwdA", "ufragB", "pwdB")
	b = newTestContextWithCredentials(t, false, "ufragB", "pwdB", "ufragA", "pwdA")

	localA, res := a.AddHostCandidate(Endpoint{TransportAddress: addrA})
	require.Equal(t, ResultOK, res)
	remoteBInA, res := a.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: addrB}, ComputeCandidatePriority(CandidateHost, false))
	require.Equal(t, ResultOK, res)
	_, res = a.AddCandidatePair(localA, remoteBInA)
	require.Equal(t, ResultOK, res)

	localB, res := b.AddHostCandidate(Endpoint{TransportAddress: addrB})
	require.Equal(t, ResultOK, res)
	remoteAInB, res := b.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: addrA}, ComputeCandidatePriority(CandidateHost, false))
	require.Equal(t, ResultOK, res)
	_, res = b.AddCandidatePair(localB, remoteAInB)
	require.Equal(t, ResultOK, res)

	return a, b, addrA, addrB
}

func newTestContextWithCredentials(t *testing.T, controlling bool, localUfrag, localPassword, remoteUfrag, remotePassword string) *Context {
	t.Helper()
	var ctx Context
	res := ctx.Init(InitInfo{
		MaxLocalCandidates:  4,
		MaxRemoteCandidates: 4,
		MaxCandidatePairs:   4,
		IsControlling:       controlling,
		TieBreaker:          7,
		Credentials: Credentials{
			LocalUfrag: localUfrag, LocalPassword: localPassword,
			RemoteUfrag: remoteUfrag, RemotePassword: remotePassword,
		},
		Crypto: DefaultCryptoFunctions(),
	})
	require.Equal(t, ResultOK, res)
	return &ctx
}

// exchangeCheck sends a connectivity check from sender's pair 0 to
// receiver, lets receiver handle it and build a response, then lets sender
// handle the response. It returns the receiver's handling result and the
// sender's handling result, so callers can assert on both halves.
func exchangeCheck(t *testing.T, sender, receiver *Context, senderAddr, receiverAddr TransportAddress, nominate bool) (receiverResult, senderResult HandleStunPacketResult) {
	t.Helper()
	var reqBuf, respBuf [512]byte

	var n int
	var res IceResult
	if nominate {
		n, res = sender.NominationRequest(reqBuf[:], 0)
	} else {
		n, res = sender.ConnectivityCheckRequest(reqBuf[:], 0)
	}
	require.Equal(t, ResultOK, res)

	receiverResult = receiver.HandleStunPacket(reqBuf[:n], senderAddr, receiverAddr)

	d, parseRes := ParseStunMessage(reqBuf[:n])
	require.Equal(t, ResultOK, parseRes)

	m, res := receiver.Response(respBuf[:], d.TransactionID, senderAddr)
	require.Equal(t, ResultOK, res)

	senderResult = sender.HandleStunPacket(respBuf[:m], receiverAddr, senderAddr)
	return receiverResult, senderResult
}

func TestConnectivityCheckFourWayHandshakeAndNomination(t *testing.T) {
	a, b, addrA, addrB := twoAgents(t)

	// A checks B first: B hasn't sent its own check on this pair yet, so it
	// answers with a triggered check of its own. A's handshake isn't
	// complete yet (it hasn't seen a request from B), so its response
	// handling is a plain OK.
	bResult, aResult := exchangeCheck(t, a, b, addrA, addrB, false)
	assert.Equal(t, HandleResultSendTriggeredCheck, bResult)
	assert.Equal(t, HandleResultOK, aResult)

	// B's triggered check reaches A, whose 4-way is now complete. A is
	// controlling and nobody is nominated yet, so it starts nominating
	// this pair. B's own handshake also completes on the response, but B
	// is controlled and this pair wasn't already Nominated, so it just
	// becomes Valid.
	aResult2, bResult2 := exchangeCheck(t, b, a, addrB, addrA, false)
	assert.Equal(t, HandleResultSendResponseAndStartNomination, aResult2)
	assert.Equal(t, HandleResultValidCandidatePair, bResult2)

	assert.Equal(t, PairNominated, a.Pair(0).State)
	assert.Equal(t, PairValid, b.Pair(0).State)
	assert.Nil(t, a.SelectedPair())

	// A, the controlling agent, nominates. B's pair is already complete,
	// so USE-CANDIDATE alone selects it; A's own pending nomination gets
	// acknowledged on the response.
	bResult3, aResult3 := exchangeCheck(t, a, b, addrA, addrB, true)
	assert.Equal(t, HandleResultSendResponseForRemoteRequest, bResult3)
	assert.Equal(t, HandleResultCandidatePairReady, aResult3)

	require.NotNil(t, a.SelectedPair())
	require.NotNil(t, b.SelectedPair())
	assert.Equal(t, PairSucceeded, a.Pair(0).State)
	assert.Equal(t, PairSucceeded, b.Pair(0).State)
	assert.True(t, b.Pair(0).Nominated)
	assert.True(t, a.Pair(0).Nominated)
}

func TestHandleBindingRequestDiscoversPeerReflexiveCandidate(t *testing.T) {
	b := newTestContextWithCredentials(t, false, "ufragB", "pwdB", "ufragA", "pwdA")
	addrB := MakeIPv4TransportAddress(10, 0, 0, 2, 5000)
	_, res := b.AddHostCandidate(Endpoint{TransportAddress: addrB})
	require.Equal(t, ResultOK, res)

	a := newTestContextWithCredentials(t, true, "ufragA", "pwdA", "ufragB", "pwdB")
	addrA := MakeIPv4TransportAddress(10, 0, 0, 1, 4000)
	localA, res := a.AddHostCandidate(Endpoint{TransportAddress: addrA})
	require.Equal(t, ResultOK, res)
	// B doesn't yet know about A's candidate -- A sends from an address B
	// has never been told about, simulating an early check that arrives
	// before signaling completes.
	remoteUnknown, res := a.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: addrB}, ComputeCandidatePriority(CandidateHost, false))
	require.Equal(t, ResultOK, res)
	_, res = a.AddCandidatePair(localA, remoteUnknown)
	require.Equal(t, ResultOK, res)

	var reqBuf [512]byte
	n, res := a.ConnectivityCheckRequest(reqBuf[:], 0)
	require.Equal(t, ResultOK, res)

	result := b.HandleStunPacket(reqBuf[:n], addrA, addrB)
	assert.Equal(t, HandleResultFoundPeerReflexiveCandidate, result)
	assert.Equal(t, 1, b.GetRemoteCandidateCount())
	assert.Equal(t, CandidatePeerReflexive, b.RemoteCandidate(0).Kind)
}

func TestHandleStunPacketRejectsBadFingerprint(t *testing.T) {
	a, b, addrA, addrB := twoAgents(t)

	var reqBuf [512]byte
	n, res := a.ConnectivityCheckRequest(reqBuf[:], 0)
	require.Equal(t, ResultOK, res)
	reqBuf[n-1] ^= 0xFF // corrupt the FINGERPRINT attribute's last byte

	result := b.HandleStunPacket(reqBuf[:n], addrA, addrB)
	assert.Equal(t, HandleResultFingerprintMismatch, result)
}

func TestHandleServerReflexiveResponse(t *testing.T) {
	ctx := newTestContextWithCredentials(t, true, "u", "p", "u", "p")
	base := MakeIPv4TransportAddress(192, 168, 1, 10, 4000)
	index, res := ctx.AddServerReflexiveCandidate(base, false)
	require.Equal(t, ResultOK, res)

	var buf [512]byte
	n, res := ctx.ServerReflexiveBindingRequest(buf[:], index)
	require.Equal(t, ResultOK, res)

	d, res := ParseStunMessage(buf[:n])
	require.Equal(t, ResultOK, res)

	mapped := MakeIPv4TransportAddress(203, 0, 113, 9, 55555)
	var respBuf [512]byte
	s, res := NewStunSerializer(respBuf[:], StunSuccessResponse, MethodBinding, d.TransactionID)
	require.Equal(t, ResultOK, res)
	require.Equal(t, ResultOK, s.AddAttributeXorMappedAddress(mapped))
	require.Equal(t, ResultOK, s.AddFingerprint(&ctx.crypto))

	result := ctx.HandleStunPacket(s.Bytes(), MakeIPv4TransportAddress(198, 51, 100, 1, 3478), base)
	assert.Equal(t, HandleResultUpdatedServerReflexiveCandidateAddress, result)

	c := ctx.LocalCandidate(index)
	assert.Equal(t, CandidateValid, c.State)
	assert.True(t, SameTransportAddress(mapped, c.Endpoint.TransportAddress))
}

func TestTurnAllocateChallengeThenSuccess(t *testing.T) {
	ctx := newTestContextWithCredentials(t, true, "u", "p", "u", "p")
	base := MakeIPv4TransportAddress(192, 168, 1, 10, 4000)
	server := TurnServer{Username: "turnuser", Password: "turnpass"}
	index, res := ctx.AddRelayCandidate(base, server)
	require.Equal(t, ResultOK, res)

	var buf [512]byte
	n, res := ctx.AllocationRequest(buf[:], index)
	require.Equal(t, ResultOK, res)
	d, res := ParseStunMessage(buf[:n])
	require.Equal(t, ResultOK, res)
	_, hasUsername := d.Find(attrUsername)
	assert.False(t, hasUsername, "first Allocate request should be unauthenticated")

	// Server challenges with 401, REALM, NONCE.
	var challengeBuf [512]byte
	s, res := NewStunSerializer(challengeBuf[:], StunErrorResponse, MethodAllocate, d.TransactionID)
	require.Equal(t, ResultOK, res)
	require.Equal(t, ResultOK, s.AddAttributeErrorCode(401, "Unauthorized"))
	require.Equal(t, ResultOK, s.AddAttributeRealm("turn.example.org"))
	require.Equal(t, ResultOK, s.AddAttributeNonce("abc123"))

	result := ctx.HandleStunPacket(s.Bytes(), MakeIPv4TransportAddress(198, 51, 100, 1, 3478), base)
	assert.Equal(t, HandleResultSendAllocationRequest, result)
	assert.True(t, ctx.LocalCandidate(index).TurnServer.HasKey)

	// Retry with credentials.
	var buf2 [512]byte
	n2, res := ctx.AllocationRequest(buf2[:], index)
	require.Equal(t, ResultOK, res)
	d2, res := ParseStunMessage(buf2[:n2])
	require.Equal(t, ResultOK, res)
	_, hasUsername2 := d2.Find(attrUsername)
	assert.True(t, hasUsername2)

	relayed := MakeIPv4TransportAddress(203, 0, 113, 50, 60000)
	var successBuf [512]byte
	s2, res := NewStunSerializer(successBuf[:], StunSuccessResponse, MethodAllocate, d2.TransactionID)
	require.Equal(t, ResultOK, res)
	require.Equal(t, ResultOK, s2.AddAttributeXorRelayedAddress(relayed))
	require.Equal(t, ResultOK, s2.AddAttributeLifetime(DefaultTurnAllocationLifetimeSeconds))

	result2 := ctx.HandleStunPacket(s2.Bytes(), MakeIPv4TransportAddress(198, 51, 100, 1, 3478), base)
	assert.Equal(t, HandleResultUpdatedRelayCandidateAddress, result2)
	c := ctx.LocalCandidate(index)
	assert.Equal(t, CandidateValid, c.State)
	assert.True(t, SameTransportAddress(relayed, c.Endpoint.TransportAddress))
}
