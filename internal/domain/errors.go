package domain

import "errors"

var (
	// ErrInvalidUserID is returned when a stats request carries a blank user ID.
	ErrInvalidUserID = errors.New("invalid user id")
	// ErrQuizNotFound indicates the quiz structure could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrMalformedCompletion marks a completion whose score cannot be aggregated.
	ErrMalformedCompletion = errors.New("malformed quiz completion")
	// ErrLeagueNotFound indicates a league has no pre-computed stats.
	ErrLeagueNotFound = errors.New("league not found")
)
