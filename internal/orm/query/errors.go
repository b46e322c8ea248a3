package query

import "errors"

var (
	// ErrNoOrdering is returned by ThenBy when no primary ordering exists
	ErrNoOrdering = errors.New("then-by requires a prior ordering")

	// ErrInvalidSkip is returned for a negative skip count
	ErrInvalidSkip = errors.New("skip count must not be negative")

	// ErrInvalidTake is returned for a take count below one
	ErrInvalidTake = errors.New("take count must be at least 1")

	// ErrMultipleResults is returned by Single when more than one entity matches
	ErrMultipleResults = errors.New("query returned more than one result")

	// ErrUnknownScope is returned when applying a scope that is not registered
	ErrUnknownScope = errors.New("unknown scope")
)
