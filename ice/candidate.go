package ice

// CandidateKind identifies how a candidate's transport address was
// discovered (RFC 8445 §5.1.1).
type CandidateKind int

const (
	CandidateHost CandidateKind = iota
	CandidateServerReflexive
	CandidatePeerReflexive
	CandidateRelay
)

func (k CandidateKind) String() string {
	switch k {
	case CandidateHost:
		return "host"
	case CandidateServerReflexive:
		return "srflx"
	case CandidatePeerReflexive:
		return "prflx"
	case CandidateRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// CandidateState tracks a local candidate through its discovery lifecycle.
// Remote candidates (learned from the far side, or discovered as
// peer-reflexive) are always CandidateValid.
type CandidateState int

const (
	CandidateNew CandidateState = iota
	CandidateAllocating
	CandidateValid
	CandidateReleasing
	CandidateInvalid
)

func (s CandidateState) String() string {
	switch s {
	case CandidateNew:
		return "new"
	case CandidateAllocating:
		return "allocating"
	case CandidateValid:
		return "valid"
	case CandidateReleasing:
		return "releasing"
	case CandidateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Candidate is a single ICE candidate: a transport address paired with how
// it was obtained. Local Host/ServerReflexive/Relay candidates carry
// bookkeeping (TransactionID of the request that created/refreshes them,
// TurnServer for Relay) that remote candidates never need.
type Candidate struct {
	Kind     CandidateKind
	State    CandidateState
	IsRemote bool

	Endpoint Endpoint
	Priority uint32
	Foundation string

	// BaseAddress is the local address this candidate was derived from:
	// itself for Host, the socket it was sent on for Server-Reflexive and
	// Relay candidates (spec §3).
	BaseAddress TransportAddress

	// TransactionID is the outstanding request this candidate is waiting
	// on a response to (binding discovery, TURN allocate/refresh), valid
	// only while awaitingResponse is set. A Refresh can be outstanding
	// while the candidate is CandidateValid or CandidateReleasing -- it
	// doesn't revert it to CandidateAllocating the way the discovery and
	// Allocate requests do. CreatePermission/ChannelBind IDs live on the
	// pair instead.
	TransactionID    TransactionID
	awaitingResponse bool

	// TurnServer is non-nil only for Relay candidates.
	TurnServer *TurnServer
}

// candidateFoundation computes a foundation string per RFC 8445 §5.1.1.3:
// candidates sharing the same type, base, and STUN/TURN server are
// considered to come from the same foundation and so share one value. This
// engine, being single-component and single-base, derives the foundation
// directly from kind and base address rather than hashing a 4-tuple, since
// there is at most one candidate of each kind per base in practice.
func candidateFoundation(kind CandidateKind, base TransportAddress) string {
	const hex = "0123456789abcdef"
	var b [8 + 32]byte
	n := copy(b[:], kind.String())
	n += copy(b[n:], "-")
	for i := 0; i < base.addressLen(); i++ {
		b[n] = hex[base.Address[i]>>4]
		b[n+1] = hex[base.Address[i]&0xf]
		n += 2
	}
	return string(b[:n])
}
