package relationships

import "errors"

var (
	// ErrUnknownRelationship is returned when an include path names no registered relation
	ErrUnknownRelationship = errors.New("unknown relationship")

	// ErrDuplicateRelationship is returned when two relations share a path
	ErrDuplicateRelationship = errors.New("duplicate relationship")
)
