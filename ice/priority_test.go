package ice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeCandidatePriority(t *testing.T) {
	// 126<<24 | 65535<<8 | 255 = 2130706431
	assert.Equal(t, uint32(2130706431), ComputeCandidatePriority(CandidateHost, false))
	// Point-to-point zeroes the local-preference term: 126<<24 | 0<<8 | 255.
	assert.Equal(t, uint32(2113929471), ComputeCandidatePriority(CandidateHost, true))

	assert.Equal(t, uint32(110<<24|65535<<8|255), ComputeCandidatePriority(CandidatePeerReflexive, false))
	assert.Equal(t, uint32(100<<24|65535<<8|255), ComputeCandidatePriority(CandidateServerReflexive, false))
	assert.Equal(t, uint32(0<<24|65535<<8|255), ComputeCandidatePriority(CandidateRelay, false))
}

func TestComputePairPriority(t *testing.T) {
	// RFC 5245 Appendix B.5: priority is symmetric in the sense that
	// swapping both which side is controlling and the arguments yields the
	// same value.
	controllingPriority := ComputePairPriority(true, 100, 200)
	controlledPriority := ComputePairPriority(false, 200, 100)
	assert.Equal(t, controllingPriority, controlledPriority)

	// Higher local priority (as controlling agent, i.e. G) sets the tiebreak
	// bit to 1, which must not change the ordering relative to the min/max
	// terms that dominate.
	higher := ComputePairPriority(true, 200, 100)
	lower := ComputePairPriority(true, 100, 200)
	assert.NotEqual(t, higher, lower)
}
