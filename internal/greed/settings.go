package greed

// DefaultScorePresets are the quick-entry point values offered while
// building a turn.
var DefaultScorePresets = []int{
	50, 100, 150, 200, 250, 300, 350, 400, 450, 500, 550, 600,
	750, 800, 1000, 1500, 2000, 2500, 3000, 4000, 5000, 10000,
}

// Settings holds app-wide preferences: the rule set new games start
// from, the score entry presets, and display options. There is a
// single settings record per installation.
type Settings struct {
	ID           int64     `json:"id"`
	DefaultRules GameRules `json:"defaultRules"`
	ScorePresets []int     `json:"scorePresets"`
	Theme        string    `json:"theme,omitempty"`
	NumberFormat string    `json:"numberFormat,omitempty"`
}

// DefaultSettings returns the factory configuration.
func DefaultSettings() *Settings {
	return &Settings{
		DefaultRules: DefaultRules(),
		ScorePresets: append([]int(nil), DefaultScorePresets...),
		Theme:        "system",
		NumberFormat: "comma",
	}
}

// Clone returns a copy so stored settings never alias live state.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}
	out := *s
	out.ScorePresets = append([]int(nil), s.ScorePresets...)
	return &out
}
