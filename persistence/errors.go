package persistence

import "errors"

// Exported sentinel errors.
var (
	ErrSourceNotFound = errors.New("recording not found")
	ErrMalformedModel = errors.New("malformed recording")
	ErrNothingLoaded  = errors.New("no recording found in any source")
	ErrUnknownFormat  = errors.New("unknown recording format")
)
