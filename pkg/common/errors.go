package common

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrSourceUnavailable = errors.New("source unavailable")
)

// ParameterError names the offending parameter. It matches ErrInvalidParameter
// through errors.Is.
type ParameterError struct {
	Field  string
	Value  any
	Reason string
}

func NewParameterError(field string, value any, reason string) *ParameterError {
	return &ParameterError{Field: field, Value: value, Reason: reason}
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("%s: %s=%v %s", ErrInvalidParameter, e.Field, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }
