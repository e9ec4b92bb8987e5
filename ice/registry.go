package ice

// AddHostCandidate registers a local host candidate bound to endpoint. It
// is immediately CandidateValid: no STUN exchange is needed to discover a
// host candidate's own address.
func (ctx *Context) AddHostCandidate(endpoint Endpoint) (int, IceResult) {
	if len(ctx.local) >= cap(ctx.local) {
		return -1, ResultMaxCandidateThreshold
	}
	c := Candidate{
		Kind:        CandidateHost,
		State:       CandidateValid,
		Endpoint:    endpoint,
		BaseAddress: endpoint.TransportAddress,
		Priority:    ComputeCandidatePriority(CandidateHost, endpoint.IsPointToPoint),
		Foundation:  candidateFoundation(CandidateHost, endpoint.TransportAddress),
	}
	ctx.local = append(ctx.local, c)
	return len(ctx.local) - 1, ResultOK
}

// AddServerReflexiveCandidate registers a local server-reflexive candidate
// in CandidateAllocating state: its mapped address is not yet known, so only
// BaseAddress (the host socket the Binding request will go out on) is set
// and Endpoint stays zero. The returned index should be passed to
// ServerReflexiveBindingRequest; HandleStunPacket fills in Endpoint when
// the matching Binding response arrives.
func (ctx *Context) AddServerReflexiveCandidate(base TransportAddress, isPointToPoint bool) (int, IceResult) {
	if len(ctx.local) >= cap(ctx.local) {
		return -1, ResultMaxCandidateThreshold
	}
	c := Candidate{
		Kind:        CandidateServerReflexive,
		State:       CandidateAllocating,
		BaseAddress: base,
		Priority:    ComputeCandidatePriority(CandidateServerReflexive, isPointToPoint),
		Foundation:  candidateFoundation(CandidateServerReflexive, base),
	}
	ctx.local = append(ctx.local, c)
	return len(ctx.local) - 1, ResultOK
}

// AddRelayCandidate registers a local relay candidate in CandidateAllocating
// state, backed by the given TURN server credentials. Its relayed
// transport address is filled in once HandleTurnAllocateSuccess processes
// the Allocate response.
func (ctx *Context) AddRelayCandidate(base TransportAddress, server TurnServer) (int, IceResult) {
	if len(ctx.local) >= cap(ctx.local) {
		return -1, ResultMaxCandidateThreshold
	}
	ts := server
	c := Candidate{
		Kind:        CandidateRelay,
		State:       CandidateAllocating,
		BaseAddress: base,
		Priority:    ComputeCandidatePriority(CandidateRelay, false),
		Foundation:  candidateFoundation(CandidateRelay, base),
		TurnServer:  &ts,
	}
	ctx.local = append(ctx.local, c)
	return len(ctx.local) - 1, ResultOK
}

// AddRemoteCandidate registers a candidate learned out-of-band (signaled by
// the remote peer), or discovered as peer-reflexive by HandleBindingRequest.
// A candidate whose transport address is already registered is not added
// again; its existing index is returned.
func (ctx *Context) AddRemoteCandidate(kind CandidateKind, endpoint Endpoint, priority uint32) (int, IceResult) {
	if i := ctx.findRemoteCandidateByAddress(endpoint.TransportAddress); i >= 0 {
		return i, ResultOK
	}
	if len(ctx.remote) >= cap(ctx.remote) {
		return -1, ResultMaxCandidateThreshold
	}
	c := Candidate{
		Kind:     kind,
		State:    CandidateValid,
		IsRemote: true,
		Endpoint: endpoint,
		Priority: priority,
	}
	ctx.remote = append(ctx.remote, c)
	return len(ctx.remote) - 1, ResultOK
}

// AddCandidatePair forms a pair from a local and remote candidate and
// inserts it into the pair slab in priority-descending order (invariant
// I2: ctx.pairs is always sorted so the first Succeeded pair found by a
// forward scan is also the highest-priority one).
func (ctx *Context) AddCandidatePair(local, remote int) (int, IceResult) {
	if len(ctx.pairs) >= cap(ctx.pairs) {
		return -1, ResultMaxCandidatePairThreshold
	}
	lc := ctx.LocalCandidate(local)
	rc := ctx.RemoteCandidate(remote)
	if lc == nil || rc == nil {
		return -1, ResultBadParam
	}

	pair := CandidatePair{
		Local:    candidateRef{remote: false, index: local},
		Remote:   candidateRef{remote: true, index: remote},
		Priority: ComputePairPriority(ctx.isControlling, lc.Priority, rc.Priority),
		State:    PairFrozen,
	}

	insertAt := len(ctx.pairs)
	for i, p := range ctx.pairs {
		if pair.Priority > p.Priority {
			insertAt = i
			break
		}
	}
	ctx.pairs = append(ctx.pairs, CandidatePair{})
	copy(ctx.pairs[insertAt+1:], ctx.pairs[insertAt:])
	ctx.pairs[insertAt] = pair
	return insertAt, ResultOK
}

// findPairByTransactionID returns the index of the pair with an
// outstanding request matching id, or -1.
func (ctx *Context) findPairByTransactionID(id TransactionID) int {
	for i := range ctx.pairs {
		if ctx.pairs[i].awaitingResponse && ctx.pairs[i].TransactionID == id {
			return i
		}
	}
	return -1
}

// findLocalCandidateByTransactionID returns the index of the local
// candidate whose outstanding Binding/Allocate/Refresh request matches id,
// or -1.
func (ctx *Context) findLocalCandidateByTransactionID(id TransactionID) int {
	for i := range ctx.local {
		if ctx.local[i].awaitingResponse && ctx.local[i].TransactionID == id {
			return i
		}
	}
	return -1
}

// findPairByAddresses returns the index of the pair whose local base and
// remote endpoint match the given transport addresses, used to locate the
// pair a peer's own connectivity check request arrived on.
func (ctx *Context) findPairByAddresses(localBase, remoteAddr TransportAddress) int {
	for i := range ctx.pairs {
		local := ctx.candidate(ctx.pairs[i].Local)
		remote := ctx.candidate(ctx.pairs[i].Remote)
		if local == nil || remote == nil {
			continue
		}
		if SameTransportAddress(local.BaseAddress, localBase) &&
			SameTransportAddress(remote.Endpoint.TransportAddress, remoteAddr) {
			return i
		}
	}
	return -1
}

// findRemoteCandidateByAddress returns the index of a remote candidate at
// addr, or -1 if none has been registered yet (signalling that a
// peer-reflexive candidate needs to be learned).
func (ctx *Context) findRemoteCandidateByAddress(addr TransportAddress) int {
	for i := range ctx.remote {
		if SameTransportAddress(ctx.remote[i].Endpoint.TransportAddress, addr) {
			return i
		}
	}
	return -1
}
