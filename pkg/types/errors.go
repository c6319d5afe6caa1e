package types

import "errors"

// Domain errors for the ingestion pipeline
var (
	// ErrInvalidUTF8 is returned by the parser for content it cannot decode
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")
	// ErrEmptyContent is returned when a record has no content
	ErrEmptyContent = errors.New("content cannot be empty")
	// ErrRunInProgress is returned when a second run is started on a
	// processor that is already running one
	ErrRunInProgress = errors.New("a processing run is already in progress")
)
