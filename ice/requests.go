package ice

// Request builders serialize outbound STUN/TURN messages into a
// caller-provided buffer and return the number of bytes written. None of
// them perform I/O or scheduling: the caller owns the socket and the
// retransmission timer, and decides when to call these (spec §1, §4.G).
// Each builder stores the transaction ID it generated on the candidate or
// pair it was built for, so the matching HandleStunPacket response can
// find it again via findPairByTransactionID /
// findLocalCandidateByTransactionID.

func (ctx *Context) newTransactionID() (TransactionID, IceResult) {
	id, res := ctx.crypto.randomTransactionID()
	if res != ResultOK {
		return id, res
	}
	if res := ctx.txStore.Insert(id); res != ResultOK {
		return id, res
	}
	return id, ResultOK
}

func (ctx *Context) finalize(s *StunSerializer, key []byte) IceResult {
	if len(key) > 0 {
		if res := s.AddMessageIntegrity(key, &ctx.crypto); res != ResultOK {
			return res
		}
	}
	return s.AddFingerprint(&ctx.crypto)
}

// ServerReflexiveBindingRequest builds the Binding request a
// CandidateServerReflexive candidate uses to discover its mapped address
// (RFC 5389 §10, no long-term credential involved).
func (ctx *Context) ServerReflexiveBindingRequest(buf []byte, candidateIndex int) (int, IceResult) {
	c := ctx.LocalCandidate(candidateIndex)
	if c == nil || c.Kind != CandidateServerReflexive {
		return 0, ResultInvalidCandidate
	}
	id, res := ctx.newTransactionID()
	if res != ResultOK {
		return 0, res
	}
	s, res := NewStunSerializer(buf, StunRequest, MethodBinding, id)
	if res != ResultOK {
		return 0, res
	}
	if res := ctx.finalize(s, nil); res != ResultOK {
		return 0, res
	}
	c.TransactionID = id
	c.awaitingResponse = true
	c.State = CandidateAllocating
	return s.Len(), ResultOK
}

// AllocationRequest builds a TURN Allocate request for a Relay candidate.
// If no realm/nonce has been learned yet, it is sent unauthenticated to
// elicit the 401 challenge (RFC 5766 §6.2); once TurnServer.Realm is set,
// subsequent calls include USERNAME/REALM/NONCE/MESSAGE-INTEGRITY.
func (ctx *Context) AllocationRequest(buf []byte, candidateIndex int) (int, IceResult) {
	c := ctx.LocalCandidate(candidateIndex)
	if c == nil || c.Kind != CandidateRelay || c.TurnServer == nil {
		return 0, ResultInvalidCandidate
	}
	ts := c.TurnServer

	id, res := ctx.newTransactionID()
	if res != ResultOK {
		return 0, res
	}
	s, res := NewStunSerializer(buf, StunRequest, MethodAllocate, id)
	if res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeRequestedTransport(); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeLifetime(DefaultTurnAllocationLifetimeSeconds); res != ResultOK {
		return 0, res
	}

	var key []byte
	if ts.Realm != "" {
		if res := s.AddAttributeUsername(ts.Username); res != ResultOK {
			return 0, res
		}
		if res := s.AddAttributeRealm(ts.Realm); res != ResultOK {
			return 0, res
		}
		if res := s.AddAttributeNonce(ts.Nonce); res != ResultOK {
			return 0, res
		}
		if !ts.HasKey {
			if res := ts.DeriveLongTermKey(&ctx.crypto); res != ResultOK {
				return 0, res
			}
		}
		key = ts.LongTermKey[:]
	}
	if res := ctx.finalize(s, key); res != ResultOK {
		return 0, res
	}

	c.TransactionID = id
	c.awaitingResponse = true
	c.State = CandidateAllocating
	return s.Len(), ResultOK
}

// RefreshRequest builds a TURN Refresh request to extend (or, with
// lifetimeSeconds 0, tear down) a Relay candidate's allocation.
func (ctx *Context) RefreshRequest(buf []byte, candidateIndex int, lifetimeSeconds uint32) (int, IceResult) {
	c := ctx.LocalCandidate(candidateIndex)
	if c == nil || c.Kind != CandidateRelay || c.TurnServer == nil {
		return 0, ResultInvalidCandidate
	}
	ts := c.TurnServer
	if !ts.HasKey {
		return 0, ResultInvalidCandidateCredential
	}

	id, res := ctx.newTransactionID()
	if res != ResultOK {
		return 0, res
	}
	s, res := NewStunSerializer(buf, StunRequest, MethodRefresh, id)
	if res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeLifetime(lifetimeSeconds); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeUsername(ts.Username); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeRealm(ts.Realm); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeNonce(ts.Nonce); res != ResultOK {
		return 0, res
	}
	if res := ctx.finalize(s, ts.LongTermKey[:]); res != ResultOK {
		return 0, res
	}

	c.TransactionID = id
	c.awaitingResponse = true
	return s.Len(), ResultOK
}

// connectivityCheckCommon writes the USERNAME/PRIORITY/role attributes and
// MESSAGE-INTEGRITY/FINGERPRINT common to every outgoing connectivity
// check, nomination included (RFC 8445 §7.2.2, §7.2.4).
func (ctx *Context) connectivityCheckCommon(s *StunSerializer, localPriority uint32, nominate bool) IceResult {
	username := ctx.credentials.RemoteUfrag + ":" + ctx.credentials.LocalUfrag
	if res := s.AddAttributeUsername(username); res != ResultOK {
		return res
	}
	if res := s.AddAttributePriority(localPriority); res != ResultOK {
		return res
	}
	if ctx.isControlling {
		if res := s.AddAttributeIceControlling(ctx.tieBreaker); res != ResultOK {
			return res
		}
		if nominate {
			if res := s.AddAttributeUseCandidate(); res != ResultOK {
				return res
			}
		}
	} else {
		if res := s.AddAttributeIceControlled(ctx.tieBreaker); res != ResultOK {
			return res
		}
	}
	return ctx.finalize(s, []byte(ctx.credentials.RemotePassword))
}

// ConnectivityCheckRequest builds the Binding request RFC 8445 §7.2.4 sends
// on a Waiting/In-Progress pair.
func (ctx *Context) ConnectivityCheckRequest(buf []byte, pairIndex int) (int, IceResult) {
	return ctx.checkRequest(buf, pairIndex, false)
}

// NominationRequest builds the same Binding request with USE-CANDIDATE set
// (RFC 8445 §7.2.2). Only the controlling agent may build it (ResultBadParam
// otherwise); it is normally sent on a pair in PairNominated, which becomes
// PairSucceeded once this request is answered.
func (ctx *Context) NominationRequest(buf []byte, pairIndex int) (int, IceResult) {
	if !ctx.isControlling {
		return 0, ResultBadParam
	}
	return ctx.checkRequest(buf, pairIndex, true)
}

func (ctx *Context) checkRequest(buf []byte, pairIndex int, nominate bool) (int, IceResult) {
	pair := ctx.Pair(pairIndex)
	if pair == nil {
		return 0, ResultInvalidCandidate
	}
	local := ctx.candidate(pair.Local)
	if local == nil {
		return 0, ResultInvalidCandidate
	}

	// A nomination request that finds its pair already sitting in
	// PairNominated with a request outstanding is re-sending the very check
	// that nomination decision was attached to (the pair's own handshake
	// completed and started nomination, or the peer's triggered check did);
	// reuse that transaction ID rather than mint a new one, so the response
	// still resolves via findPairByTransactionID.
	var id TransactionID
	var res IceResult
	if nominate && pair.State == PairNominated && pair.awaitingResponse {
		id = pair.TransactionID
	} else {
		id, res = ctx.newTransactionID()
		if res != ResultOK {
			return 0, res
		}
	}

	s, res := NewStunSerializer(buf, StunRequest, MethodBinding, id)
	if res != ResultOK {
		return 0, res
	}
	if res := ctx.connectivityCheckCommon(s, local.Priority, nominate); res != ResultOK {
		return 0, res
	}

	pair.TransactionID = id
	pair.awaitingResponse = true
	pair.setSent()
	if nominate {
		pair.Nominated = true
	}
	if pair.State == PairFrozen || pair.State == PairWaiting {
		pair.State = PairInProgress
	}
	return s.Len(), ResultOK
}

// Response builds a Binding success response to a connectivity check or
// peer-reflexive discovery request the engine just received, per
// HandleBindingRequest's directive to send one back. mappedAddress is the
// source address the inbound request arrived from (echoed back
// XOR'd per RFC 5389 §10.2).
func (ctx *Context) Response(buf []byte, requestTransactionID TransactionID, mappedAddress TransportAddress) (int, IceResult) {
	s, res := NewStunSerializer(buf, StunSuccessResponse, MethodBinding, requestTransactionID)
	if res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeXorMappedAddress(mappedAddress); res != ResultOK {
		return 0, res
	}
	if res := ctx.finalize(s, []byte(ctx.credentials.LocalPassword)); res != ResultOK {
		return 0, res
	}
	return s.Len(), ResultOK
}

// CreatePermissionRequest builds a TURN CreatePermission request
// authorizing pairIndex's remote candidate address to send data through
// its local relay candidate's allocation (RFC 5766 §9). Like
// ChannelBindRequest, this is a pair-level operation: the response is
// matched back to the pair by transaction ID, not by relay candidate, so
// that CreatePermission/ChannelBind bookkeeping (and the pair state it
// drives) lives in one place.
func (ctx *Context) CreatePermissionRequest(buf []byte, pairIndex int) (int, IceResult) {
	pair := ctx.Pair(pairIndex)
	if pair == nil {
		return 0, ResultInvalidCandidate
	}
	local := ctx.candidate(pair.Local)
	remote := ctx.candidate(pair.Remote)
	if local == nil || remote == nil || local.Kind != CandidateRelay || local.TurnServer == nil {
		return 0, ResultInvalidCandidate
	}
	ts := local.TurnServer
	if !ts.HasKey {
		return 0, ResultInvalidCandidateCredential
	}

	id, res := ctx.newTransactionID()
	if res != ResultOK {
		return 0, res
	}
	s, res := NewStunSerializer(buf, StunRequest, MethodCreatePermission, id)
	if res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeXorPeerAddress(remote.Endpoint.TransportAddress); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeUsername(ts.Username); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeRealm(ts.Realm); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeNonce(ts.Nonce); res != ResultOK {
		return 0, res
	}
	if res := ctx.finalize(s, ts.LongTermKey[:]); res != ResultOK {
		return 0, res
	}

	pair.TransactionID = id
	pair.awaitingResponse = true
	pair.State = PairCreatePermission
	return s.Len(), ResultOK
}

// ChannelBindRequest builds a TURN ChannelBind request binding pairIndex's
// remote candidate address to a freshly allocated channel number (RFC 5766
// §11).
func (ctx *Context) ChannelBindRequest(buf []byte, pairIndex int) (int, IceResult) {
	pair := ctx.Pair(pairIndex)
	if pair == nil {
		return 0, ResultInvalidCandidate
	}
	local := ctx.candidate(pair.Local)
	remote := ctx.candidate(pair.Remote)
	if local == nil || remote == nil || local.Kind != CandidateRelay || local.TurnServer == nil {
		return 0, ResultInvalidCandidate
	}
	ts := local.TurnServer
	if !ts.HasKey {
		return 0, ResultInvalidCandidateCredential
	}

	channel, res := ts.nextChannelNumber()
	if res != ResultOK {
		return 0, res
	}

	id, res := ctx.newTransactionID()
	if res != ResultOK {
		return 0, res
	}
	s, res := NewStunSerializer(buf, StunRequest, MethodChannelBind, id)
	if res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeChannelNumber(channel); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeXorPeerAddress(remote.Endpoint.TransportAddress); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeUsername(ts.Username); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeRealm(ts.Realm); res != ResultOK {
		return 0, res
	}
	if res := s.AddAttributeNonce(ts.Nonce); res != ResultOK {
		return 0, res
	}
	if res := ctx.finalize(s, ts.LongTermKey[:]); res != ResultOK {
		return 0, res
	}

	pair.TurnChannelNumber = channel
	pair.TransactionID = id
	pair.awaitingResponse = true
	pair.State = PairChannelBind
	return s.Len(), ResultOK
}
