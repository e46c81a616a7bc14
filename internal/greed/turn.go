package greed

import "time"

// Outcome is how a committed turn resolved.
type Outcome string

const (
	OutcomeBank    Outcome = "BANK"
	OutcomeBust    Outcome = "BUST"
	OutcomePenalty Outcome = "PENALTY"
)

// SegmentSource tells where a draft segment came from.
type SegmentSource string

const (
	SegmentPreset    SegmentSource = "preset"
	SegmentCustom    SegmentSource = "custom"
	SegmentCarryOver SegmentSource = "carry_over"
)

// TurnScoreSegment is one atomic contribution to a turn's draft.
// Segment order is insertion order and matters only for display.
type TurnScoreSegment struct {
	Points int           `json:"points"`
	Source SegmentSource `json:"source"`
	Label  string        `json:"label,omitempty"`
	At     time.Time     `json:"at"`
}

// Voided is the logical tombstone on an undone turn. Voided turns stay
// in storage for audit but are excluded from totals and replay.
type Voided struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

// TurnFlags captures optional context about how a turn resolved.
type TurnFlags struct {
	UsedCarryOver      bool `json:"usedCarryOver,omitempty"`
	TriggeredOvershoot bool `json:"triggeredOvershoot,omitempty"`
	ExceededTargetBy   int  `json:"exceededTargetBy,omitempty"`
}

// Turn is an immutable ledger record of one committed bank or bust.
// The only permitted mutation after creation is voiding.
type Turn struct {
	ID     int64 `json:"id"`
	GameID int64 `json:"gameId"`

	// TurnNumber is the game-global 1-based sequence; RoundNumber is
	// derived from it and the roster size.
	TurnNumber  int `json:"turnNumber"`
	RoundNumber int `json:"roundNumber"`

	PlayerID    int64     `json:"playerId"`
	PlayerIndex int       `json:"playerIndex"`
	EndedAt     time.Time `json:"endedAt"`

	Segments  []TurnScoreSegment `json:"segments"`
	RollCount int                `json:"rollCount,omitempty"`

	TurnPoints   int     `json:"turnPoints"`
	Outcome      Outcome `json:"outcome"`
	DeltaApplied int     `json:"deltaApplied"`

	TotalBefore   int  `json:"totalBefore"`
	TotalAfter    int  `json:"totalAfter"`
	OnBoardBefore bool `json:"onBoardBefore"`
	OnBoardAfter  bool `json:"onBoardAfter"`

	Flags *TurnFlags `json:"flags,omitempty"`

	Voided *Voided `json:"voided,omitempty"`
}

// IsVoided reports whether the turn carries a void tombstone.
func (t *Turn) IsVoided() bool {
	return t != nil && t.Voided != nil
}

// SumSegments totals a segment list. Sum is commutative, so segment
// order never affects it.
func SumSegments(segments []TurnScoreSegment) int {
	sum := 0
	for _, s := range segments {
		sum += s.Points
	}
	return sum
}

// Clone returns a deep copy so stored turns never alias live state.
func (t *Turn) Clone() *Turn {
	if t == nil {
		return nil
	}
	out := *t
	out.Segments = append([]TurnScoreSegment(nil), t.Segments...)
	if t.Flags != nil {
		f := *t.Flags
		out.Flags = &f
	}
	if t.Voided != nil {
		v := *t.Voided
		out.Voided = &v
	}
	return &out
}
