package ice

// typePreference returns the RFC 8445 §5.1.2.1 type-preference term for a
// candidate kind.
func typePreference(kind CandidateKind) uint32 {
	switch kind {
	case CandidateHost:
		return 126
	case CandidatePeerReflexive:
		return 110
	case CandidateServerReflexive:
		return 100
	case CandidateRelay:
		return 0
	default:
		return 0
	}
}

// componentID is fixed at 1 for this single-component agent (spec §4.D).
const componentID = 1

// ComputeCandidatePriority computes the RFC 5245 §4.1.2 candidate priority.
// isPointToPoint zeroes the local-preference term, matching spec.md's
// formula for two hosts on the same link.
func ComputeCandidatePriority(kind CandidateKind, isPointToPoint bool) uint32 {
	var localPref uint32 = 65535
	if isPointToPoint {
		localPref = 0
	}
	return (typePreference(kind) << 24) | (localPref << 8) | (256 - componentID)
}

// ComputePairPriority computes the RFC 5245 Appendix B.5 pair priority
// from the controlling and controlled candidates' priorities.
func ComputePairPriority(isControlling bool, localPriority, remotePriority uint32) uint64 {
	var g, d uint64
	if isControlling {
		g, d = uint64(localPriority), uint64(remotePriority)
	} else {
		g, d = uint64(remotePriority), uint64(localPriority)
	}

	min, max := g, d
	if d < g {
		min, max = d, g
	}

	var bit uint64
	if g > d {
		bit = 1
	}
	return (uint64(1)<<32)*min + 2*max + bit
}
