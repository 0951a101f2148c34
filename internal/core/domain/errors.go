package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrExtraction marks a fatal extraction failure: the document is present
	// but a field every downstream record depends on could not be recovered.
	ErrExtraction = errors.New("extraction failed")
	ErrTemporary  = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
