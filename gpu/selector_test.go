package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelector_SmallWorkloadsStayOnCPU(t *testing.T) {
	sel := NewSelector(ForceAuto, true, true, TierHigh)

	got := sel.Select(Workload{NumPaths: 1023})
	assert.Equal(t, StrategySimd, got, "below threshold must not pick GPU")

	got = sel.Select(Workload{NumPaths: 10})
	assert.False(t, got.IsGPU())
}

func TestSelector_LargeWorkloadsPreferGPU(t *testing.T) {
	sel := NewSelector(ForceAuto, true, true, TierHigh)

	got := sel.Select(Workload{NumPaths: 65536, Wildcards: 1})
	assert.True(t, got.IsGPU())
	assert.Equal(t, nativeGPU(), got)
}

func TestSelector_ComplexityRaisesScore(t *testing.T) {
	// Standard tier wants 8x the work; simple patterns at the bare
	// threshold stay on CPU but class-heavy ones cross over.
	sel := NewSelector(ForceAuto, true, true, TierStandard)

	simple := sel.Select(Workload{NumPaths: 2048, Wildcards: 1})
	assert.False(t, simple.IsGPU())

	complexW := sel.Select(Workload{NumPaths: 2048, Wildcards: 3, Classes: 2})
	assert.True(t, complexW.IsGPU())
}

func TestSelector_NoGPU(t *testing.T) {
	sel := NewSelector(ForceAuto, true, false, TierNone)
	got := sel.Select(Workload{NumPaths: 1 << 20, Classes: 8})
	assert.Equal(t, StrategySimd, got)
}

func TestSelector_NoSIMD(t *testing.T) {
	sel := NewSelector(ForceAuto, false, false, TierNone)
	assert.Equal(t, StrategyScalar, sel.Select(Workload{NumPaths: 100}))
}

func TestSelector_Forced(t *testing.T) {
	sel := NewSelector(ForceCPU, true, true, TierHigh)
	assert.Equal(t, StrategySimd, sel.Select(Workload{NumPaths: 1 << 20}))

	sel = NewSelector(ForceMetal, true, false, TierNone)
	assert.Equal(t, StrategyMetal, sel.Select(Workload{NumPaths: 1}),
		"forced backends bypass the selector")

	sel = NewSelector(ForceVulkan, true, false, TierNone)
	assert.Equal(t, StrategyVulkan, sel.Select(Workload{NumPaths: 1}))

	sel = NewSelector(ForceGPU, true, false, TierNone)
	assert.Equal(t, StrategySimd, sel.Select(Workload{NumPaths: 1}),
		"--gpu without a device degrades to CPU")
}

func TestDeviceCaps_Tier(t *testing.T) {
	tests := []struct {
		name string
		caps DeviceCaps
		want Tier
	}{
		{"cpu", DeviceCaps{}, TierNone},
		{"apple_silicon", DeviceCaps{MaxThreadsPerGroup: 1024, Unified: true}, TierHigh},
		{"discrete", DeviceCaps{MaxThreadsPerGroup: 1024, Unified: false}, TierStandard},
		{"weak_unified", DeviceCaps{MaxThreadsPerGroup: 512, Unified: true}, TierStandard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.caps.Tier(), tt.name)
	}
}

func TestWorkload_Score(t *testing.T) {
	assert.Equal(t, 1000, Workload{NumPaths: 1000, Wildcards: 1}.score())
	assert.Equal(t, 2000, Workload{NumPaths: 1000, Wildcards: 2}.score())
	assert.Equal(t, 3000, Workload{NumPaths: 1000, Classes: 2}.score())
	assert.Equal(t, 5000, Workload{NumPaths: 1000, Regex: true}.score())
}
