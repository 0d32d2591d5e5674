package tier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/points-ledger/internal/tier"
)

func testDefs() []tier.Definition {
	return []tier.Definition{
		{Name: "Bronze", MinBalance: 0, Multiplier: 1.0},
		{Name: "Silver", MinBalance: 150, Multiplier: 1.25},
		{Name: "Gold", MinBalance: 1000, Multiplier: 1.5},
	}
}

func TestCompute_Boundaries(t *testing.T) {
	t.Parallel()

	defs := testDefs()

	assert.Equal(t, "Bronze", tier.Compute(0, defs))
	assert.Equal(t, "Bronze", tier.Compute(149, defs))
	// A balance exactly equal to a threshold belongs to that tier.
	assert.Equal(t, "Silver", tier.Compute(150, defs))
	assert.Equal(t, "Silver", tier.Compute(999, defs))
	assert.Equal(t, "Gold", tier.Compute(1000, defs))
	assert.Equal(t, "Gold", tier.Compute(1_000_000, defs))
}

func TestCompute_Deterministic(t *testing.T) {
	t.Parallel()

	defs := testDefs()
	for i := 0; i < 10; i++ {
		assert.Equal(t, tier.Compute(150, defs), tier.Compute(150, defs))
	}
}

func TestCompute_NegativeBalanceMapsToLowest(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Bronze", tier.Compute(-5, testDefs()))
}

func TestParseDefinitions_Success(t *testing.T) {
	t.Parallel()

	defs, err := tier.ParseDefinitions("Bronze:0,Silver:150:1.25,Gold:1000:1.5")
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, "Bronze", defs[0].Name)
	assert.Equal(t, 1.0, defs[0].Multiplier)
	assert.Equal(t, int64(150), defs[1].MinBalance)
	assert.Equal(t, 1.25, defs[1].Multiplier)
}

func TestParseDefinitions_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing threshold", "Bronze"},
		{"non-numeric threshold", "Bronze:abc"},
		{"nonzero lowest", "Silver:100"},
		{"not increasing", "Bronze:0,Silver:100,Gold:100"},
		{"decreasing", "Bronze:0,Silver:500,Gold:100"},
		{"zero multiplier", "Bronze:0:0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tier.ParseDefinitions(tc.input)
			assert.Error(t, err)
		})
	}
}

func TestDefaultDefinitions_Valid(t *testing.T) {
	t.Parallel()

	require.NoError(t, tier.ValidateDefinitions(tier.DefaultDefinitions()))
}

func TestMultiplierFor(t *testing.T) {
	t.Parallel()

	defs := testDefs()
	assert.Equal(t, 1.25, tier.MultiplierFor("Silver", defs))
	assert.Equal(t, 1.0, tier.MultiplierFor("unknown", defs))
}

func TestNextProgress(t *testing.T) {
	t.Parallel()

	defs := testDefs()

	p := tier.NextProgress(75, defs)
	require.NotNil(t, p.NextTier)
	assert.Equal(t, "Silver", *p.NextTier)
	assert.Equal(t, int64(75), *p.PointsToNext)
	assert.Equal(t, int64(50), p.ProgressPercent)

	p = tier.NextProgress(150, defs)
	require.NotNil(t, p.NextTier)
	assert.Equal(t, "Gold", *p.NextTier)
	assert.Equal(t, int64(850), *p.PointsToNext)

	// Highest tier has no next.
	p = tier.NextProgress(5000, defs)
	assert.Nil(t, p.NextTier)
	assert.Nil(t, p.PointsToNext)
	assert.Equal(t, int64(100), p.ProgressPercent)
}
