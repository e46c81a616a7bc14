package greed

import "fmt"

// BankPreview is the hypothetical outcome of banking the current
// draft. It is a pure computation: calling it any number of times with
// the same inputs yields the same result and mutates nothing.
type BankPreview struct {
	TurnPoints      int
	NewTotal        int
	WouldOvershoot  bool
	ExceededBy      int
	PenaltyApplied  int
	FinalTotal      int
	Outcome         Outcome
	WouldGetOnBoard bool
	CanBank         bool
	CantBankReason  string
}

// PreviewBank computes what banking the draft segments would do to a
// player sitting at currentTotal with the given on-board status.
//
// Gating checks run in a fixed order (on-board threshold, then minimum
// bank) so the reported reason is deterministic: the first failing
// check wins.
func PreviewBank(rules GameRules, currentTotal int, onBoard bool, segments []TurnScoreSegment) BankPreview {
	turnPoints := SumSegments(segments)
	potentialTotal := currentTotal + turnPoints

	p := BankPreview{
		TurnPoints: turnPoints,
		NewTotal:   potentialTotal,
		Outcome:    OutcomeBank,
		FinalTotal: potentialTotal,
		CanBank:    true,
	}

	if !onBoard && turnPoints < rules.OnBoardThreshold {
		p.CanBank = false
		p.CantBankReason = fmt.Sprintf("need %d to get on board", rules.OnBoardThreshold)
	}

	if p.CanBank && rules.MinBank > 0 && turnPoints < rules.MinBank {
		p.CanBank = false
		p.CantBankReason = fmt.Sprintf("minimum bank is %d", rules.MinBank)
	}

	if rules.MustHitExactly && potentialTotal > rules.TargetScore {
		p.WouldOvershoot = true
		p.ExceededBy = potentialTotal - rules.TargetScore

		switch rules.OvershootPenalty {
		case OvershootLoseFullBank:
			p.Outcome = OutcomePenalty
			p.PenaltyApplied = turnPoints
			p.FinalTotal = currentTotal
		case OvershootLoseOvershootOnly:
			p.PenaltyApplied = p.ExceededBy
			p.FinalTotal = rules.TargetScore
		case OvershootCapAtTarget:
			p.FinalTotal = rules.TargetScore
		}
	}

	// Only a bankable BANK outcome gets a player on board; an overshoot
	// penalty forfeits the turn, board entry included.
	p.WouldGetOnBoard = p.CanBank && !onBoard && p.Outcome == OutcomeBank

	return p
}
