package parser

import (
	"errors"
	"fmt"
)

// ErrInputNotFound is matched by every InputError.
var ErrInputNotFound = errors.New("corpus root not found")

// InputError aborts a whole run: the corpus root is missing or unusable.
type InputError struct {
	Path   string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("corpus %s: %s", e.Path, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInputNotFound }

// ParseError is recorded against a single document and never aborts a batch.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
