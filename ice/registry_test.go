package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, maxLocal, maxRemote, maxPairs int, controlling bool) *Context {
	t.Helper()
	var ctx Context
	res := ctx.Init(InitInfo{
		MaxLocalCandidates:  maxLocal,
		MaxRemoteCandidates: maxRemote,
		MaxCandidatePairs:   maxPairs,
		IsControlling:       controlling,
		TieBreaker:          42,
		Credentials: Credentials{
			LocalUfrag: "lfrag", LocalPassword: "lpass",
			RemoteUfrag: "rfrag", RemotePassword: "rpass",
		},
		Crypto: DefaultCryptoFunctions(),
	})
	require.Equal(t, ResultOK, res)
	return &ctx
}

func TestAddHostCandidateThreshold(t *testing.T) {
	ctx := newTestContext(t, 1, 1, 1, true)
	endpoint := Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 1, 1234)}

	_, res := ctx.AddHostCandidate(endpoint)
	assert.Equal(t, ResultOK, res)
	assert.Equal(t, 1, ctx.GetLocalCandidateCount())

	_, res = ctx.AddHostCandidate(endpoint)
	assert.Equal(t, ResultMaxCandidateThreshold, res)
}

func TestAddCandidatePairPriorityOrdering(t *testing.T) {
	ctx := newTestContext(t, 4, 4, 4, true)

	lowPriorityHost := Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 1, 1), IsPointToPoint: true}
	highPriorityHost := Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 2, 2)}
	low, _ := ctx.AddHostCandidate(lowPriorityHost)
	high, _ := ctx.AddHostCandidate(highPriorityHost)

	remote1, _ := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 3, 3)}, 100)
	remote2, _ := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 4, 4)}, 200)

	idxLow, res := ctx.AddCandidatePair(low, remote1)
	require.Equal(t, ResultOK, res)
	idxHigh, res := ctx.AddCandidatePair(high, remote2)
	require.Equal(t, ResultOK, res)

	// The higher-priority pair must come first regardless of insertion
	// order (invariant: pairs slab stays priority-descending). Returned
	// indices are insertion-time positions: the low pair went into the
	// empty slab at 0, then the high pair was inserted ahead of it at 0.
	assert.Equal(t, idxLow, idxHigh)
	assert.Equal(t, high, ctx.Pair(0).Local.index)
	assert.Greater(t, ctx.Pair(0).Priority, ctx.Pair(1).Priority)
}

func TestAddCandidatePairThreshold(t *testing.T) {
	ctx := newTestContext(t, 4, 4, 1, true)
	local, _ := ctx.AddHostCandidate(Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 1, 1)})
	r1, _ := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 2, 2)}, 1)
	r2, _ := ctx.AddRemoteCandidate(CandidateHost, Endpoint{TransportAddress: MakeIPv4TransportAddress(10, 0, 0, 3, 3)}, 1)

	_, res := ctx.AddCandidatePair(local, r1)
	require.Equal(t, ResultOK, res)
	_, res = ctx.AddCandidatePair(local, r2)
	assert.Equal(t, ResultMaxCandidatePairThreshold, res)
}
