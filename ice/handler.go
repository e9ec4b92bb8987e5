package ice

// HandleStunPacket is the single entry point for every inbound STUN/TURN
// message (spec §4.H). It never performs I/O: buf is a packet the caller
// already read off a socket, sourceAddr is where it came from, and
// localBase is the local candidate's base address it arrived on (needed to
// locate the candidate pair a peer's own check landed on). The caller
// drives everything that happens next off the returned directive.
func (ctx *Context) HandleStunPacket(buf []byte, sourceAddr, localBase TransportAddress) HandleStunPacketResult {
	d, res := ParseStunMessage(buf)
	if res != ResultOK {
		return HandleResultDeserializeError
	}

	switch d.Class {
	case StunRequest:
		return ctx.handleRequest(d, sourceAddr, localBase)
	case StunSuccessResponse, StunErrorResponse:
		return ctx.handleResponse(d, sourceAddr)
	case StunIndication:
		return HandleResultStunBindingIndication
	default:
		return HandleResultInvalidPacketType
	}
}

// handleRequest implements HandleBindingRequest's role/USE-CANDIDATE
// dispatch (spec §4.H): whether REQ_SENT was already set on this pair
// before the inbound request arrived decides whether this is a fresh
// triggered check or the answer leg of a handshake we started ourselves,
// and role plus USE-CANDIDATE then decide whether this is also the moment
// a pair gets nominated.
func (ctx *Context) handleRequest(d *StunDeserializer, sourceAddr, localBase TransportAddress) HandleStunPacketResult {
	if d.Method != MethodBinding {
		return HandleResultInvalidPacketType
	}
	if !d.VerifyFingerprint(&ctx.crypto) {
		return HandleResultFingerprintMismatch
	}
	if !d.VerifyMessageIntegrity([]byte(ctx.credentials.LocalPassword), &ctx.crypto) {
		return HandleResultIntegrityMismatch
	}

	priority := uint32(0)
	if attr, ok := d.Find(attrPriority); ok && len(attr.Value) == 4 {
		priority = uint32(attr.Value[0])<<24 | uint32(attr.Value[1])<<16 | uint32(attr.Value[2])<<8 | uint32(attr.Value[3])
	}
	_, useCandidate := d.Find(attrUseCandidate)

	pairIndex := ctx.findPairByAddresses(localBase, sourceAddr)
	foundPeerReflexive := false
	if pairIndex < 0 {
		remoteIndex := ctx.findRemoteCandidateByAddress(sourceAddr)
		if remoteIndex < 0 {
			var res IceResult
			remoteIndex, res = ctx.AddRemoteCandidate(CandidatePeerReflexive, Endpoint{TransportAddress: sourceAddr}, priority)
			if res != ResultOK {
				return HandleResultBadParam
			}
			foundPeerReflexive = true
			log.Debug("ice: learned peer-reflexive remote candidate from %v", sourceAddr)
		}
		localIndex := ctx.findLocalCandidateByBase(localBase)
		if localIndex < 0 {
			return HandleResultCandidatePairNotFound
		}
		var res IceResult
		pairIndex, res = ctx.AddCandidatePair(localIndex, remoteIndex)
		if res != ResultOK {
			return HandleResultCandidatePairNotFound
		}
	}

	pair := &ctx.pairs[pairIndex]
	wasSent := pair.sent()
	pair.setReqRcvd()

	// Rows 1/4: this side hasn't sent its own check on this pair yet, so
	// the peer's request triggers one (RFC 8445 §7.3.1.4) regardless of
	// role.
	if !wasSent {
		pair.setSent()
		pair.setRespSent()
		log.Debug("ice: pair %d triggered check (controlling=%v)", pairIndex, ctx.isControlling)
		if foundPeerReflexive {
			return HandleResultFoundPeerReflexiveCandidate
		}
		return HandleResultSendTriggeredCheck
	}

	pair.setRespSent()
	complete := pair.handshakeComplete()

	if !ctx.isControlling {
		// Rows 2/3: the controlled side just answers, unless USE-CANDIDATE
		// arrived on a now-complete pair -- then the controlling peer has
		// picked this one.
		if useCandidate && complete {
			pair.State = PairSucceeded
			pair.Nominated = true
			ctx.nominatedPair = pairIndex
			ctx.selectedPair = pairIndex
			ctx.releaseOtherCandidates(pairIndex)
			log.Info("ice: pair %d nominated by peer and selected", pairIndex)
		}
		if foundPeerReflexive {
			return HandleResultFoundPeerReflexiveCandidate
		}
		return HandleResultSendResponseForRemoteRequest
	}

	// Rows 5/6: the controlling side decides to start its own nomination
	// only once this pair's 4-way is complete and no other pair has
	// already been nominated.
	if complete && ctx.nominatedPair < 0 {
		id, res := ctx.newTransactionID()
		if res == ResultOK {
			pair.TransactionID = id
			pair.awaitingResponse = true
			pair.State = PairNominated
			ctx.nominatedPair = pairIndex
			log.Info("ice: starting nomination on pair %d", pairIndex)
			return HandleResultSendResponseAndStartNomination
		}
	}
	if foundPeerReflexive {
		return HandleResultFoundPeerReflexiveCandidate
	}
	return HandleResultSendResponseForRemoteRequest
}

func (ctx *Context) findLocalCandidateByBase(base TransportAddress) int {
	for i := range ctx.local {
		if SameTransportAddress(ctx.local[i].BaseAddress, base) {
			return i
		}
	}
	return -1
}

func (ctx *Context) handleResponse(d *StunDeserializer, sourceAddr TransportAddress) HandleStunPacketResult {
	if !ctx.txStore.HasID(d.TransactionID) {
		return HandleResultMatchingTransactionIDNotFound
	}

	switch d.Method {
	case MethodBinding:
		if pairIndex := ctx.findPairByTransactionID(d.TransactionID); pairIndex >= 0 {
			return ctx.handleConnectivityCheckResponse(d, pairIndex)
		}
		if candIndex := ctx.findLocalCandidateByTransactionID(d.TransactionID); candIndex >= 0 {
			return ctx.handleServerReflexiveResponse(d, candIndex)
		}
		return HandleResultMatchingTransactionIDNotFound

	case MethodAllocate:
		candIndex := ctx.findLocalCandidateByTransactionID(d.TransactionID)
		if candIndex < 0 {
			return HandleResultMatchingTransactionIDNotFound
		}
		if d.Class == StunErrorResponse {
			return ctx.handleTurnAllocateError(d, candIndex)
		}
		return ctx.handleTurnAllocateSuccess(d, candIndex)

	case MethodRefresh:
		candIndex := ctx.findLocalCandidateByTransactionID(d.TransactionID)
		if candIndex < 0 {
			return HandleResultMatchingTransactionIDNotFound
		}
		if d.Class == StunErrorResponse {
			return HandleResultRefreshUnknownError
		}
		return ctx.handleTurnRefreshSuccess(d, candIndex)

	case MethodCreatePermission:
		// Pair-level, not candidate-level: CreatePermission authorizes a
		// specific (local relay, remote peer) pairing, and the matching
		// response is found by TxID rather than by source address since
		// TURN traffic always arrives from the relay server (spec §4.H).
		pairIndex := ctx.findPairByTransactionID(d.TransactionID)
		if pairIndex < 0 {
			return HandleResultMatchingTransactionIDNotFound
		}
		ctx.txStore.Remove(d.TransactionID)
		pair := &ctx.pairs[pairIndex]
		pair.awaitingResponse = false
		if d.Class == StunErrorResponse {
			pair.State = PairFailed
			return HandleResultNonZeroErrorCode
		}
		pair.TurnPermissionExpirationSeconds = DefaultTurnPermissionLifetimeSeconds
		pair.State = PairChannelBind
		turnLog.Debug("permission installed on pair %d, binding channel next", pairIndex)
		return HandleResultSendChannelBindRequest

	case MethodChannelBind:
		pairIndex := ctx.findPairByTransactionID(d.TransactionID)
		if pairIndex < 0 {
			return HandleResultMatchingTransactionIDNotFound
		}
		ctx.txStore.Remove(d.TransactionID)
		pair := &ctx.pairs[pairIndex]
		pair.awaitingResponse = false
		if d.Class == StunErrorResponse {
			pair.State = PairFailed
			return HandleResultNonZeroErrorCode
		}
		if pairIndex == ctx.selectedPair {
			pair.State = PairSucceeded
			turnLog.Info("channel %#x bound on selected pair %d", pair.TurnChannelNumber, pairIndex)
			return HandleResultFreshChannelBindComplete
		}
		pair.State = PairWaiting
		return HandleResultSendConnectivityCheckRequest

	default:
		return HandleResultInvalidPacketType
	}
}

// handleServerReflexiveResponse processes the Binding success response
// that discovers a CandidateServerReflexive candidate's mapped address
// (RFC 5389 §10.2).
func (ctx *Context) handleServerReflexiveResponse(d *StunDeserializer, candIndex int) HandleStunPacketResult {
	ctx.txStore.Remove(d.TransactionID)
	c := &ctx.local[candIndex]
	c.awaitingResponse = false

	if d.Class == StunErrorResponse {
		ctx.closeLocalCandidate(c)
		return HandleResultNonZeroErrorCode
	}
	attr, ok := d.Find(attrXorMappedAddress)
	if !ok {
		return HandleResultAddressAttributeNotFound
	}
	addr, res := decodeXorAddress(attr.Value, d.TransactionID)
	if res != ResultOK {
		return HandleResultInvalidFamilyType
	}
	c.Endpoint = Endpoint{TransportAddress: addr}
	c.State = CandidateValid
	return HandleResultUpdatedServerReflexiveCandidateAddress
}

// handleConnectivityCheckResponse advances a pair's 4-way handshake state
// on receipt of a Binding success/error response to our own check (RFC
// 8445 §7.2.5, spec §4.H step 5/6).
func (ctx *Context) handleConnectivityCheckResponse(d *StunDeserializer, pairIndex int) HandleStunPacketResult {
	pair := &ctx.pairs[pairIndex]
	ctx.txStore.Remove(d.TransactionID)
	pair.awaitingResponse = false

	if d.Class == StunErrorResponse {
		pair.State = PairFailed
		return HandleResultNonZeroErrorCode
	}
	if !d.VerifyMessageIntegrity([]byte(ctx.credentials.RemotePassword), &ctx.crypto) {
		return HandleResultIntegrityMismatch
	}

	pair.setReceived()
	if pair.handshakeComplete() {
		switch {
		case pair.State == PairNominated:
			// This pair's own nomination just got acknowledged.
			pair.State = PairSucceeded
			ctx.selectedPair = pairIndex
			ctx.releaseOtherCandidates(pairIndex)
			log.Info("ice: pair %d succeeded, nomination acknowledged", pairIndex)
			return HandleResultCandidatePairReady
		case ctx.isControlling:
			// Our 4-way just completed on the controlling side -- start
			// nominating this pair. Unlike the inbound-request path, this
			// does not check whether another pair is already nominated.
			id, res := ctx.newTransactionID()
			if res != ResultOK {
				return HandleResultBadParam
			}
			pair.TransactionID = id
			pair.awaitingResponse = true
			pair.State = PairNominated
			ctx.nominatedPair = pairIndex
			log.Info("ice: starting nomination on pair %d", pairIndex)
			return HandleResultStartNomination
		default:
			pair.State = PairValid
			return HandleResultValidCandidatePair
		}
	}

	// Handshake not yet complete: the only other thing a check response
	// can tell us is a peer-reflexive promotion, when the responder saw us
	// from an address different than the one we thought we were using
	// (RFC 8445 §7.2.5.3.1). This only applies to server-reflexive pairs;
	// a host candidate's address can't be wrong.
	attr, ok := d.Find(attrXorMappedAddress)
	if !ok {
		return HandleResultAddressAttributeNotFound
	}
	mapped, res := decodeXorAddress(attr.Value, d.TransactionID)
	if res != ResultOK {
		return HandleResultInvalidFamilyType
	}
	local := ctx.candidate(pair.Local)
	remote := ctx.candidate(pair.Remote)
	if local != nil && remote != nil &&
		local.Kind == CandidateServerReflexive && remote.Kind == CandidateServerReflexive &&
		!SameTransportAddress(mapped, local.Endpoint.TransportAddress) {
		local.Kind = CandidatePeerReflexive
		local.Endpoint = Endpoint{TransportAddress: mapped}
		log.Debug("ice: promoted local candidate to peer-reflexive via check response from %v", mapped)
		return HandleResultFoundPeerReflexiveCandidate
	}
	return HandleResultOK
}

// handleTurnAllocateSuccess fills in a Relay candidate's relayed transport
// address once its Allocate request succeeds (RFC 5766 §6.2).
func (ctx *Context) handleTurnAllocateSuccess(d *StunDeserializer, candIndex int) HandleStunPacketResult {
	ctx.txStore.Remove(d.TransactionID)
	c := &ctx.local[candIndex]
	c.awaitingResponse = false

	attr, ok := d.Find(attrXorRelayedAddress)
	if !ok {
		return HandleResultAddressAttributeNotFound
	}
	addr, res := decodeXorAddress(attr.Value, d.TransactionID)
	if res != ResultOK {
		return HandleResultInvalidFamilyType
	}
	lifetime := DefaultTurnAllocationLifetimeSeconds
	if lt, ok := d.Find(attrLifetime); ok && len(lt.Value) == 4 {
		lifetime = uint32(lt.Value[0])<<24 | uint32(lt.Value[1])<<16 | uint32(lt.Value[2])<<8 | uint32(lt.Value[3])
	}

	c.Endpoint = Endpoint{TransportAddress: addr}
	c.State = CandidateValid
	c.TurnServer.AllocationExpirationSeconds = uint64(lifetime)
	turnLog.Info("allocated relay candidate %d at %v, lifetime %ds", candIndex, addr, lifetime)
	return HandleResultUpdatedRelayCandidateAddress
}

// handleTurnAllocateError processes the 401/438 challenge every
// unauthenticated Allocate request receives the first time (RFC 5766
// §6.2), learning the realm/nonce so the caller can retry with
// AllocationRequest.
func (ctx *Context) handleTurnAllocateError(d *StunDeserializer, candIndex int) HandleStunPacketResult {
	ctx.txStore.Remove(d.TransactionID)
	c := &ctx.local[candIndex]
	c.awaitingResponse = false
	ts := c.TurnServer

	errAttr, ok := d.Find(attrErrorCode)
	if !ok {
		return HandleResultAddressAttributeNotFound
	}
	code, _, res := ParseErrorCode(errAttr.Value)
	if res != ResultOK {
		return HandleResultRandomErrorCode
	}
	if code != 401 && code != 438 {
		return HandleResultAllocateUnknownError
	}

	realmAttr, ok := d.Find(attrRealm)
	if !ok {
		return HandleResultAddressAttributeNotFound
	}
	nonceAttr, ok := d.Find(attrNonce)
	if !ok {
		return HandleResultAddressAttributeNotFound
	}
	ts.Realm = string(realmAttr.Value)
	ts.Nonce = string(nonceAttr.Value)
	if res := ts.DeriveLongTermKey(&ctx.crypto); res != ResultOK {
		return HandleResultLongTermCredentialCalculationError
	}
	turnLog.Debug("candidate %d challenged (code %d), retrying with long-term credentials", candIndex, code)
	return HandleResultSendAllocationRequest
}

// handleTurnRefreshSuccess processes a successful Refresh response; a
// Refresh with lifetime 0 (an explicit deallocation) terminates the
// session rather than extending it (RFC 5766 §7).
func (ctx *Context) handleTurnRefreshSuccess(d *StunDeserializer, candIndex int) HandleStunPacketResult {
	ctx.txStore.Remove(d.TransactionID)
	c := &ctx.local[candIndex]
	c.awaitingResponse = false

	lifetime := DefaultTurnAllocationLifetimeSeconds
	if lt, ok := d.Find(attrLifetime); ok && len(lt.Value) == 4 {
		lifetime = uint32(lt.Value[0])<<24 | uint32(lt.Value[1])<<16 | uint32(lt.Value[2])<<8 | uint32(lt.Value[3])
	}
	c.TurnServer.AllocationExpirationSeconds = uint64(lifetime)
	if lifetime == 0 {
		turnLog.Info("relay candidate %d deallocated", candIndex)
		ctx.closeLocalCandidate(c)
		return HandleResultTurnSessionTerminated
	}
	c.State = CandidateValid
	return HandleResultFreshComplete
}
