// Package greed implements the rule-driven turn engine for the Greed
// family of dice scorekeepers: bank previews, turn resolution, and
// state reconstruction by replaying the turn ledger.
package greed

import "fmt"

// OvershootPolicy selects how a bank that would exceed the target score
// is resolved when the rules require hitting the target exactly.
type OvershootPolicy string

const (
	// OvershootLoseFullBank forfeits the whole turn; the total is unchanged.
	OvershootLoseFullBank OvershootPolicy = "lose_full_bank"
	// OvershootLoseOvershootOnly banks up to the target and forfeits the rest.
	OvershootLoseOvershootOnly OvershootPolicy = "lose_overshoot_only"
	// OvershootCapAtTarget banks the turn but caps the total at the target.
	OvershootCapAtTarget OvershootPolicy = "cap_at_target"
)

// GameRules is the immutable per-game configuration. It is snapshotted
// onto the game at creation so later rule edits never affect history.
type GameRules struct {
	TargetScore        int             `json:"targetScore"`
	MustHitExactly     bool            `json:"mustHitExactly"`
	OvershootPenalty   OvershootPolicy `json:"overshootPenaltyType"`
	OnBoardThreshold   int             `json:"onBoardThreshold"`
	AllowCarryOverBank bool            `json:"allowCarryOverBank"`
	// MinBank is the minimum turn points required to bank at all.
	// Zero means no minimum.
	MinBank int `json:"minBank,omitempty"`
}

// DefaultRules returns the standard 10,000-point Greed configuration.
func DefaultRules() GameRules {
	return GameRules{
		TargetScore:        10000,
		MustHitExactly:     true,
		OvershootPenalty:   OvershootLoseFullBank,
		OnBoardThreshold:   500,
		AllowCarryOverBank: true,
	}
}

// Validate reports whether the rules describe a playable game.
func (r GameRules) Validate() error {
	if r.TargetScore <= 0 {
		return fmt.Errorf("%w: target score must be positive, got %d", ErrInvalidRules, r.TargetScore)
	}
	if r.OnBoardThreshold < 0 {
		return fmt.Errorf("%w: on-board threshold must not be negative, got %d", ErrInvalidRules, r.OnBoardThreshold)
	}
	if r.MinBank < 0 {
		return fmt.Errorf("%w: minimum bank must not be negative, got %d", ErrInvalidRules, r.MinBank)
	}
	switch r.OvershootPenalty {
	case OvershootLoseFullBank, OvershootLoseOvershootOnly, OvershootCapAtTarget:
	default:
		return fmt.Errorf("%w: unknown overshoot policy %q", ErrInvalidRules, r.OvershootPenalty)
	}
	return nil
}
