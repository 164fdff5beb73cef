package feedback

import "errors"

var (
	// ErrMissingIdentifier is returned when a scoring call lacks a staff id or course code.
	ErrMissingIdentifier = errors.New("missing identifier")

	// ErrNoMatchingResponses is returned when no response row survives filtering.
	ErrNoMatchingResponses = errors.New("no matching responses")

	// ErrMissingReferenceData is returned when the question/option schema is unavailable.
	ErrMissingReferenceData = errors.New("missing reference data")

	// ErrPartialRollupFailure marks a roll-up that excluded at least one offering.
	ErrPartialRollupFailure = errors.New("partial roll-up failure")
)
