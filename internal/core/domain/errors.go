package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal stage transition")
	ErrStaleTransition   = errors.New("stale transition")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrExtractionFailure = errors.New("extraction failure")
	ErrInvalidInput      = errors.New("invalid input")
	ErrCorruptAuditLog   = errors.New("corrupt audit log")
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
