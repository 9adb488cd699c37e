package analysis

import "errors"

// Analysis errors
var (
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidThresholds = errors.New("invalid thresholds")
	ErrUnknownVariable   = errors.New("unknown weather variable")
)
