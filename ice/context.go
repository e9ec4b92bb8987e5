package ice

import "github.com/lanikai/iceagent/internal/logging"

var log = logging.DefaultLogger.WithTag("ice")
var turnLog = logging.DefaultLogger.WithTag("turn")

// Credentials holds the short-term ICE credentials (RFC 8445 §16) used to
// authenticate connectivity checks: USERNAME is "remoteFrag:localFrag" on
// outgoing requests (or the reverse on inbound ones) and MESSAGE-INTEGRITY
// is keyed by the peer's password.
type Credentials struct {
	LocalUfrag      string
	LocalPassword   string
	RemoteUfrag     string
	RemotePassword  string
}

// InitInfo bundles everything Context.Init needs: the fixed capacities for
// its candidate/pair slabs (never grown after Init), the
// caller's role and tiebreaker, the local/remote ICE credentials, and the
// injected crypto primitives.
type InitInfo struct {
	MaxLocalCandidates  int
	MaxRemoteCandidates int
	MaxCandidatePairs   int

	IsControlling bool
	TieBreaker    uint64

	Credentials Credentials

	Crypto CryptoFunctions

	// CloseCandidateFunc, if set, is invoked when a local candidate
	// transitions to CandidateInvalid (a server-reflexive probe answered
	// with an error, a TURN allocation refreshed with lifetime 0) or to
	// CandidateReleasing (another pair was selected), giving the embedder a
	// chance to release any socket it holds for it.
	// The engine never performs I/O itself; this is purely a notification.
	CloseCandidateFunc func(*Candidate)

	// TransactionIDStoreCapacity bounds how many outstanding transaction
	// IDs HandleStunPacket can recognize at once (spec §4.B).
	TransactionIDStoreCapacity int
}

// Context is the entire state of one ICE agent: its candidate and pair
// slabs, role, credentials, and injected primitives. It performs no I/O and
// starts no goroutines. Its slabs are sized once by Init and never grown,
// but later calls still make small heap allocations of their own (for
// example the TurnServer copy in AddRelayCandidate and the attribute slice
// built by StunDeserializer.Find).
type Context struct {
	local  []Candidate
	remote []Candidate
	pairs  []CandidatePair

	isControlling bool
	tieBreaker    uint64
	credentials   Credentials
	crypto        CryptoFunctions

	nominatedPair int // index into pairs, or -1
	selectedPair  int // index into pairs, or -1

	txStore TransactionIDStore

	closeCandidate func(*Candidate)
}

// Init prepares ctx for use, pre-allocating its candidate/pair slabs and
// transaction-ID store at the requested capacities. The slabs are never
// grown afterward: an Add* call on a full slab returns a threshold error.
func (ctx *Context) Init(info InitInfo) IceResult {
	if info.MaxLocalCandidates <= 0 || info.MaxRemoteCandidates <= 0 || info.MaxCandidatePairs <= 0 {
		return ResultBadParam
	}
	if !info.Crypto.valid() {
		return ResultBadParam
	}

	ctx.local = make([]Candidate, 0, info.MaxLocalCandidates)
	ctx.remote = make([]Candidate, 0, info.MaxRemoteCandidates)
	ctx.pairs = make([]CandidatePair, 0, info.MaxCandidatePairs)

	ctx.isControlling = info.IsControlling
	ctx.tieBreaker = info.TieBreaker
	ctx.credentials = info.Credentials
	ctx.crypto = info.Crypto
	ctx.nominatedPair = -1
	ctx.selectedPair = -1
	ctx.closeCandidate = info.CloseCandidateFunc

	capacity := info.TransactionIDStoreCapacity
	if capacity <= 0 {
		capacity = info.MaxCandidatePairs + info.MaxLocalCandidates
	}
	return ctx.txStore.Init(capacity)
}

// GetLocalCandidateCount returns the number of local candidates added so
// far.
func (ctx *Context) GetLocalCandidateCount() int { return len(ctx.local) }

// GetRemoteCandidateCount returns the number of remote candidates added so
// far.
func (ctx *Context) GetRemoteCandidateCount() int { return len(ctx.remote) }

// GetCandidatePairCount returns the number of candidate pairs formed so
// far.
func (ctx *Context) GetCandidatePairCount() int { return len(ctx.pairs) }

// LocalCandidate dereferences a weak local-candidate reference.
func (ctx *Context) LocalCandidate(index int) *Candidate {
	if index < 0 || index >= len(ctx.local) {
		return nil
	}
	return &ctx.local[index]
}

// RemoteCandidate dereferences a weak remote-candidate reference.
func (ctx *Context) RemoteCandidate(index int) *Candidate {
	if index < 0 || index >= len(ctx.remote) {
		return nil
	}
	return &ctx.remote[index]
}

// candidate resolves a candidateRef to its underlying Candidate.
func (ctx *Context) candidate(ref candidateRef) *Candidate {
	if ref.remote {
		return ctx.RemoteCandidate(ref.index)
	}
	return ctx.LocalCandidate(ref.index)
}

// Pair returns the candidate pair at index, or nil if out of range.
func (ctx *Context) Pair(index int) *CandidatePair {
	if index < 0 || index >= len(ctx.pairs) {
		return nil
	}
	return &ctx.pairs[index]
}

// NominatedPair returns the nominated pair, or nil if there is none yet:
// on the controlling side, the pair whose nomination was started (whether
// or not it has been acknowledged); on the controlled side, the pair the
// peer selected with USE-CANDIDATE.
func (ctx *Context) NominatedPair() *CandidatePair {
	if ctx.nominatedPair < 0 {
		return nil
	}
	return &ctx.pairs[ctx.nominatedPair]
}

// SelectedPair returns the pair selected to carry application traffic --
// the pair whose nomination most recently completed -- or nil if none has
// been selected yet. Pair priorities are not compared when selecting.
func (ctx *Context) SelectedPair() *CandidatePair {
	if ctx.selectedPair < 0 {
		return nil
	}
	return &ctx.pairs[ctx.selectedPair]
}

func (ctx *Context) closeLocalCandidate(c *Candidate) {
	c.State = CandidateInvalid
	if ctx.closeCandidate != nil {
		ctx.closeCandidate(c)
	}
}

// releaseLocalCandidate drives a candidate that lost the nomination race
// toward Releasing rather than Invalid: unlike closeLocalCandidate (used on
// an actual failure), this candidate worked fine, it's just no longer
// needed once a pair has been selected.
func (ctx *Context) releaseLocalCandidate(c *Candidate) {
	c.State = CandidateReleasing
	if ctx.closeCandidate != nil {
		ctx.closeCandidate(c)
	}
}

// releaseOtherCandidates implements ReleaseOtherCandidates (spec §4.H):
// once keepPairIndex is nominated/selected, every other local candidate is
// no longer needed and is driven toward Releasing via the close-candidate
// hook.
func (ctx *Context) releaseOtherCandidates(keepPairIndex int) {
	keep := ctx.Pair(keepPairIndex)
	if keep == nil {
		return
	}
	keepLocal := keep.Local
	for i := range ctx.local {
		if !keepLocal.remote && keepLocal.index == i {
			continue
		}
		if ctx.local[i].State == CandidateValid {
			ctx.releaseLocalCandidate(&ctx.local[i])
		}
	}
}
