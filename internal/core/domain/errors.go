package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is matched by every text-to-plan failure.
	ErrParse = errors.New("plan text is not valid")

	ErrInvalidPlan      = errors.New("plan has validation errors")
	ErrIndexOutOfRange  = errors.New("stop index out of range")
	ErrWrongView        = errors.New("operation not available in the current view")
	ErrSessionNotFound  = errors.New("editor session not found")
	ErrPlanNotFound     = errors.New("plan not found")
	ErrUnknownField     = errors.New("unknown stop field")
	ErrUnknownView      = errors.New("unknown view")
	ErrUnknownAction    = errors.New("unknown date action")
	ErrUnknownContext   = errors.New("unknown editor context")
	ErrInvalidSharePlan = errors.New("share payload is corrupted")
)

// ParseError carries the decoder message for a text that could not be read.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse plan: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
