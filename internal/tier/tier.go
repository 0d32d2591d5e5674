// Package tier maps a points balance to a membership tier. Computation is a
// pure function over an immutable threshold snapshot, so callers pass the
// definitions in rather than reading shared state.
package tier

import (
	"fmt"
	"strconv"
	"strings"
)

// Definition is one tier threshold. MinBalance is an inclusive lower bound;
// a balance exactly equal to the threshold belongs to that tier. Multiplier
// scales base earn amounts for members currently in the tier.
type Definition struct {
	Name       string  `json:"name"`
	MinBalance int64   `json:"minBalance"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultDefinitions returns the built-in tier ladder used when no
// TIER_THRESHOLDS configuration is provided.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: "Bronze", MinBalance: 0, Multiplier: 1.0},
		{Name: "Silver", MinBalance: 500, Multiplier: 1.25},
		{Name: "Gold", MinBalance: 2000, Multiplier: 1.5},
		{Name: "Platinum", MinBalance: 5000, Multiplier: 2.0},
	}
}

// ParseDefinitions parses a comma-separated threshold list of the form
// "Bronze:0:1.0,Silver:500:1.25". The multiplier segment is optional and
// defaults to 1.0.
func ParseDefinitions(s string) ([]Definition, error) {
	var defs []Definition
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("invalid tier definition %q", part)
		}

		name := strings.TrimSpace(fields[0])
		if name == "" {
			return nil, fmt.Errorf("invalid tier definition %q: empty name", part)
		}

		min, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid tier definition %q: %w", part, err)
		}

		mult := 1.0
		if len(fields) == 3 {
			mult, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid tier definition %q: %w", part, err)
			}
		}

		defs = append(defs, Definition{Name: name, MinBalance: min, Multiplier: mult})
	}

	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// ValidateDefinitions checks that the ladder is non-empty, starts at zero,
// and has strictly increasing thresholds.
func ValidateDefinitions(defs []Definition) error {
	if len(defs) == 0 {
		return fmt.Errorf("at least one tier definition is required")
	}
	if defs[0].MinBalance != 0 {
		return fmt.Errorf("lowest tier %q must have minBalance 0, got %d", defs[0].Name, defs[0].MinBalance)
	}
	for i := 1; i < len(defs); i++ {
		if defs[i].MinBalance <= defs[i-1].MinBalance {
			return fmt.Errorf("tier thresholds must be strictly increasing: %q (%d) after %q (%d)",
				defs[i].Name, defs[i].MinBalance, defs[i-1].Name, defs[i-1].MinBalance)
		}
	}
	for _, d := range defs {
		if d.Multiplier <= 0 {
			return fmt.Errorf("tier %q multiplier must be positive, got %v", d.Name, d.Multiplier)
		}
	}
	return nil
}

// Compute returns the tier name for the given balance. Thresholds are
// inclusive lower bounds; balances below every threshold (including a fresh
// zero balance) map to the lowest tier.
func Compute(balance int64, defs []Definition) string {
	current := defs[0].Name
	for _, d := range defs {
		if balance >= d.MinBalance {
			current = d.Name
		}
	}
	return current
}

// MultiplierFor returns the earn multiplier of the named tier, or 1.0 when
// the name is not in the ladder.
func MultiplierFor(name string, defs []Definition) float64 {
	for _, d := range defs {
		if d.Name == name {
			return d.Multiplier
		}
	}
	return 1.0
}

// Progress describes how far a member is from the next tier. Nil next-tier
// fields mean the member already holds the highest tier.
type Progress struct {
	NextTier        *string `json:"nextTier"`
	PointsToNext    *int64  `json:"pointsToNextTier"`
	ProgressPercent int64   `json:"progressPercent"`
}

// NextProgress computes the member's progress toward the next tier.
func NextProgress(balance int64, defs []Definition) Progress {
	for _, d := range defs {
		if balance < d.MinBalance {
			remaining := d.MinBalance - balance
			pct := int64(0)
			if balance > 0 {
				pct = balance * 100 / d.MinBalance
			}
			name := d.Name
			return Progress{NextTier: &name, PointsToNext: &remaining, ProgressPercent: pct}
		}
	}
	return Progress{ProgressPercent: 100}
}
