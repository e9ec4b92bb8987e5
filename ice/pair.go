package ice

// CandidatePairState tracks a pair through the ICE checklist state machine
// (RFC 8445 §6.1.2.6) plus the TURN permission/channel-bind states this
// engine's relay pairs pass through before they can carry traffic.
type CandidatePairState int

const (
	PairFrozen CandidatePairState = iota
	PairWaiting
	PairInProgress

	// PairValid is reached by a controlled pair once its 4-way handshake
	// completes without USE-CANDIDATE (RFC 8445 §7.2.5.3.2); it is not yet
	// the selected pair.
	PairValid

	// PairNominated marks a pair the controlling agent has decided to
	// nominate: its 4-way handshake completed, either on a response to its
	// own check or on an inbound check while no other pair was nominated.
	// NominationRequest then sends USE-CANDIDATE on it, and it becomes
	// PairSucceeded once that nomination is acknowledged.
	PairNominated

	PairSucceeded
	PairFailed

	// PairCreatePermission/PairChannelBind are relay-only sub-states a pair
	// passes through before it can carry data once its relay candidate has
	// a TURN allocation (spec §4.H).
	PairCreatePermission
	PairChannelBind
)

func (s CandidatePairState) String() string {
	switch s {
	case PairFrozen:
		return "frozen"
	case PairWaiting:
		return "waiting"
	case PairInProgress:
		return "in-progress"
	case PairValid:
		return "valid"
	case PairNominated:
		return "nominated"
	case PairSucceeded:
		return "succeeded"
	case PairFailed:
		return "failed"
	case PairCreatePermission:
		return "create-permission"
	case PairChannelBind:
		return "channel-bind"
	default:
		return "unknown"
	}
}

// Connectivity-check progress bitmask (RFC 8445 §7.2.5.1): a pair
// accumulates these bits as its 4-way handshake advances, independent of
// State, so that a request raced against the peer's own check on the same
// pair still converges to the same outcome from either side.
type checkFlags uint8

const (
	flagRequestSent checkFlags = 1 << iota
	flagResponseReceived
	flagRequestReceived
	flagResponseSent
)

// candidateRef is a weak reference into Context's candidate slab: a
// (remote bool, index) pair rather than a pointer, so that candidate
// storage can live in an append-only fixed-capacity slice without the
// usual Go aliasing hazards of holding pointers into a growing slice
// (spec invariant I1 -- indices are stable, slice headers are not).
type candidateRef struct {
	remote bool
	index  int
}

// CandidatePair is a (local, remote) candidate pairing under connectivity
// check. Local and Remote are weak references (spec §3); dereference them
// through Context.LocalCandidate/RemoteCandidate rather than caching a
// *Candidate across calls that might mutate the slab.
type CandidatePair struct {
	Local  candidateRef
	Remote candidateRef

	Priority uint64
	State    CandidatePairState
	Nominated bool

	checks checkFlags

	// awaitingResponse is true from the moment a request is sent on this
	// pair until its response is handled; the engine has no timeouts. Unlike
	// sent()/received(), which accumulate across the pair's whole lifetime
	// and never reset, this is the reliable "is TransactionID still live"
	// predicate once a pair has completed more than one request/response
	// round (e.g. a nomination request following the initial 4-way check).
	awaitingResponse bool

	// TransactionID is the outstanding connectivity-check (or TURN
	// CreatePermission/ChannelBind) request's transaction ID while
	// awaitingResponse is true.
	TransactionID TransactionID

	// Relay-only bookkeeping, valid only when the local candidate is a
	// Relay candidate.
	TurnChannelNumber               uint16
	TurnPermissionExpirationSeconds uint64
}

func (p *CandidatePair) setSent()      { p.checks |= flagRequestSent }
func (p *CandidatePair) setReceived()  { p.checks |= flagResponseReceived }
func (p *CandidatePair) setReqRcvd()   { p.checks |= flagRequestReceived }
func (p *CandidatePair) setRespSent()  { p.checks |= flagResponseSent }

func (p *CandidatePair) sent() bool     { return p.checks&flagRequestSent != 0 }
func (p *CandidatePair) received() bool { return p.checks&flagResponseReceived != 0 }
func (p *CandidatePair) reqRcvd() bool  { return p.checks&flagRequestReceived != 0 }
func (p *CandidatePair) respSent() bool { return p.checks&flagResponseSent != 0 }

// handshakeComplete reports whether this pair has both sent a check and
// received a response to it, AND answered a check from the peer -- the
// full 4-way exchange RFC 8445 §7.2.5.1 requires before a pair is Valid in
// both directions.
func (p *CandidatePair) handshakeComplete() bool {
	return p.sent() && p.received() && p.reqRcvd() && p.respSent()
}
