package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Batch preconditions
	ErrNoCredential     = errors.New("no credential available")
	ErrNoPlatforms      = errors.New("no platforms selected")
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrRunInProgress    = errors.New("a batch run is already in progress")
	ErrTooManyFiles     = errors.New("too many files in upload")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToExport  = errors.New("no completed items for platform")
	ErrUnsupportedMedia = errors.New("media type not supported by provider")

	// Provider responses
	ErrEmptyResponse     = errors.New("provider returned no content")
	ErrMalformedResponse = errors.New("provider returned malformed metadata")
)
