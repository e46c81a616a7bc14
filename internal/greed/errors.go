package greed

import "errors"

var (
	ErrInvalidRules   = errors.New("invalid game rules")
	ErrEmptyRoster    = errors.New("game needs at least one player")
	ErrRosterMismatch = errors.New("roster does not match player ids")
	ErrGameNotFound   = errors.New("game not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrTurnNotFound   = errors.New("turn not found")
	ErrGameOver       = errors.New("game is over")
)
