package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrManifestUnavailable is fatal to the list view.
	ErrManifestUnavailable = errors.New("manifest unavailable")
	// ErrDocumentNotAvailable covers missing and malformed documents alike.
	ErrDocumentNotAvailable = errors.New("not available for this date")
	ErrPlaybackFailed       = errors.New("playback failed")
	ErrInvalidLocation      = errors.New("invalid location")
)

// DocumentNotAvailableMessage is the user-facing text for ErrDocumentNotAvailable.
const DocumentNotAvailableMessage = "Morning Light not available for this date."
