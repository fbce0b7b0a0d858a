package service

import "errors"

var (
	// ErrMalformedRequestID is returned when a lookup id is not a UUID of the expected version
	ErrMalformedRequestID = errors.New("request id is not a valid UUID")

	// ErrRequestNotFound is returned when no record exists for a well-formed id
	ErrRequestNotFound = errors.New("request id not found")

	// ErrStorage wraps any persistence failure
	ErrStorage = errors.New("storage failure")
)
