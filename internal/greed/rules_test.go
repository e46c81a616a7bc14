package greed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameRules_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GameRules)
		wantErr bool
	}{
		{"defaults valid", func(r *GameRules) {}, false},
		{"zero target", func(r *GameRules) { r.TargetScore = 0 }, true},
		{"negative target", func(r *GameRules) { r.TargetScore = -100 }, true},
		{"negative threshold", func(r *GameRules) { r.OnBoardThreshold = -1 }, true},
		{"zero threshold ok", func(r *GameRules) { r.OnBoardThreshold = 0 }, false},
		{"negative min bank", func(r *GameRules) { r.MinBank = -50 }, true},
		{"min bank ok", func(r *GameRules) { r.MinBank = 350 }, false},
		{"unknown overshoot policy", func(r *GameRules) { r.OvershootPenalty = "explode" }, true},
		{"cap at target ok", func(r *GameRules) { r.OvershootPenalty = OvershootCapAtTarget }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRules()
			tt.mutate(&rules)
			err := rules.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRules)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultRules_StandardGreed(t *testing.T) {
	rules := DefaultRules()

	assert.Equal(t, 10000, rules.TargetScore)
	assert.True(t, rules.MustHitExactly)
	assert.Equal(t, OvershootLoseFullBank, rules.OvershootPenalty)
	assert.Equal(t, 500, rules.OnBoardThreshold)
	assert.True(t, rules.AllowCarryOverBank)
	assert.Equal(t, 0, rules.MinBank)
}
