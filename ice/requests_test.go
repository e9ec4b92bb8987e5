package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relayReadyContext(t *testing.T) (ctx *Context, relayIndex int, base TransportAddress) {
	t.Helper()
	ctx = newTestContextWithCredentials(t, true, "u", "p", "u", "p")
	base = MakeIPv4TransportAddress(192, 168, 1, 10, 4000)
	server := TurnServer{
		Username: "turnuser", Password: "turnpass",
		Realm: "turn.example.org", Nonce: "abc123",
	}
	require.Equal(t, ResultOK, server.DeriveLongTermKey(&ctx.crypto))
	var res IceResult
	relayIndex, res = ctx.AddRelayCandidate(base, server)
	require.Equal(t, ResultOK, res)
	ctx.local[relayIndex].State = CandidateValid
	ctx.local[relayIndex].Endpoint = Endpoint{TransportAddress: MakeIPv4TransportAddress(203, 0, 113, 50, 60000)}
	return ctx, relayIndex, base
}

func TestCreatePermissionRequestRequiresCredentials(t *testing.T) {
	ctx := newTestContextWithCredentials(t, true, "u", "p", "u", "p")
	base := MakeIPv4TransportAddress(192, 168, 1, 10, 4000)
	index, res := ctx.AddRelayCandidate(base, TurnServer{Username: "u", Password: "p"})
	require.Equal(t, ResultOK, res)
	remoteIndex, res := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(1, 2, 3, 4, 9)}, 1)
	require.Equal(t, ResultOK, res)
	pairIndex, res := ctx.AddCandidatePair(index, remoteIndex)
	require.Equal(t, ResultOK, res)

	var buf [512]byte
	_, res = ctx.CreatePermissionRequest(buf[:], pairIndex)
	assert.Equal(t, ResultInvalidCandidateCredential, res)
}

func TestCreatePermissionRoundTrip(t *testing.T) {
	ctx, relayIndex, _ := relayReadyContext(t)
	peer := MakeIPv4TransportAddress(198, 51, 100, 77, 9000)
	remoteIndex, res := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: peer}, 1)
	require.Equal(t, ResultOK, res)
	pairIndex, res := ctx.AddCandidatePair(relayIndex, remoteIndex)
	require.Equal(t, ResultOK, res)

	var buf [512]byte
	n, res := ctx.CreatePermissionRequest(buf[:], pairIndex)
	require.Equal(t, ResultOK, res)

	d, res := ParseStunMessage(buf[:n])
	require.Equal(t, ResultOK, res)
	assert.Equal(t, MethodCreatePermission, d.Method)

	var respBuf [20]byte
	s, res := NewStunSerializer(respBuf[:], StunSuccessResponse, MethodCreatePermission, d.TransactionID)
	require.Equal(t, ResultOK, res)

	result := ctx.HandleStunPacket(s.Bytes(), MakeIPv4TransportAddress(198, 51, 100, 1, 3478), ctx.local[relayIndex].BaseAddress)
	assert.Equal(t, HandleResultSendChannelBindRequest, result)
	assert.Equal(t, PairChannelBind, ctx.Pair(pairIndex).State)
}

func TestChannelBindAssignsChannelAndCompletes(t *testing.T) {
	ctx, relayIndex, _ := relayReadyContext(t)
	remoteIndex, res := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(198, 51, 100, 77, 9000)}, 1)
	require.Equal(t, ResultOK, res)
	pairIndex, res := ctx.AddCandidatePair(relayIndex, remoteIndex)
	require.Equal(t, ResultOK, res)
	// ChannelBind only reaches its Succeeded branch for the pair ICE has
	// already selected to carry traffic; a not-yet-selected pair binds a
	// channel but stays in the checklist.
	ctx.selectedPair = pairIndex

	var buf [512]byte
	n, res := ctx.ChannelBindRequest(buf[:], pairIndex)
	require.Equal(t, ResultOK, res)
	assert.Equal(t, DefaultTurnChannelNumberMin, ctx.Pair(pairIndex).TurnChannelNumber)

	d, res := ParseStunMessage(buf[:n])
	require.Equal(t, ResultOK, res)
	assert.Equal(t, MethodChannelBind, d.Method)

	var respBuf [20]byte
	s, res := NewStunSerializer(respBuf[:], StunSuccessResponse, MethodChannelBind, d.TransactionID)
	require.Equal(t, ResultOK, res)

	result := ctx.HandleStunPacket(s.Bytes(), MakeIPv4TransportAddress(198, 51, 100, 1, 3478), ctx.local[relayIndex].BaseAddress)
	assert.Equal(t, HandleResultFreshChannelBindComplete, result)
	assert.Equal(t, PairSucceeded, ctx.Pair(pairIndex).State)
}

func TestChannelBindNotYetSelectedReturnsToWaiting(t *testing.T) {
	ctx, relayIndex, _ := relayReadyContext(t)
	remoteIndex, res := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(198, 51, 100, 77, 9000)}, 1)
	require.Equal(t, ResultOK, res)
	pairIndex, res := ctx.AddCandidatePair(relayIndex, remoteIndex)
	require.Equal(t, ResultOK, res)

	var buf [512]byte
	n, res := ctx.ChannelBindRequest(buf[:], pairIndex)
	require.Equal(t, ResultOK, res)

	d, res := ParseStunMessage(buf[:n])
	require.Equal(t, ResultOK, res)

	var respBuf [20]byte
	s, res := NewStunSerializer(respBuf[:], StunSuccessResponse, MethodChannelBind, d.TransactionID)
	require.Equal(t, ResultOK, res)

	result := ctx.HandleStunPacket(s.Bytes(), MakeIPv4TransportAddress(198, 51, 100, 1, 3478), ctx.local[relayIndex].BaseAddress)
	assert.Equal(t, HandleResultSendConnectivityCheckRequest, result)
	assert.Equal(t, PairWaiting, ctx.Pair(pairIndex).State)
}

func TestNominationRequestRejectedForControlledAgent(t *testing.T) {
	ctx := newTestContextWithCredentials(t, false, "u", "p", "u", "p")
	local, _ := ctx.AddHostCandidate(Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 1, 1)})
	remote, _ := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 2, 2)}, 1)
	pairIndex, _ := ctx.AddCandidatePair(local, remote)

	var buf [512]byte
	_, res := ctx.NominationRequest(buf[:], pairIndex)
	assert.Equal(t, ResultBadParam, res)
}
