package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyContent is returned for input that is empty after trimming.
	ErrEmptyContent = errors.New("empty message content")
	// ErrMissingField is wrapped by DecodeError when a required field is absent.
	ErrMissingField = errors.New("missing field")
)

// DecodeError reports an inbound payload that is not a recognizable message.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode message: %v", e.Err)
	}
	return fmt.Sprintf("decode message: %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func decodeError(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Err: err}
}
