package domain

import (
	"errors"
	"fmt"
)

var (
	ErrClaimNotFound = errors.New("claim not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicateID   = errors.New("duplicate claim id")
	ErrStepInFlight  = errors.New("stage step already in flight")
	ErrStageFailed   = errors.New("stage execution failed")
	ErrTemporary     = errors.New("temporary failure")
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
