package models

import "errors"

var (
	// ErrMalformed marks a decision that could not be parsed or does not fit
	// the action schema.
	ErrMalformed = errors.New("malformed decision")

	// ErrInvalidTarget marks an action naming a dead or nonexistent seat.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrAbilityMisuse marks an action the seat's role or charges forbid.
	ErrAbilityMisuse = errors.New("ability not available")
)
