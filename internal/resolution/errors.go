// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package resolution

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrProfileRequired is returned when an operation needs a profile and
	// the user has not created one.
	ErrProfileRequired = errors.New("profile required")

	// ErrIntegrity marks broken referential invariants such as an orphaned
	// parent or a second profile for one user.
	ErrIntegrity = errors.New("data integrity violation")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
