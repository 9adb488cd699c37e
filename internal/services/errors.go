package services

import "errors"

// Dashboard service errors
var (
	ErrUnknownChart  = errors.New("unknown chart")
	ErrUnknownTable  = errors.New("unknown export table")
	ErrUnknownFormat = errors.New("unknown export format")
)
