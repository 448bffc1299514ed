// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package postgres

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/resolute/resolute/internal/resolution"
)

// constraintError maps referential and uniqueness violations to
// resolution.ErrIntegrity under the given code and check violations to a
// validation error. Other errors return nil.
func constraintError(err error, code string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgerrcode.ForeignKeyViolation, pgerrcode.UniqueViolation:
		return oops.Code(code).
			With("constraint", pgErr.ConstraintName).
			With("sqlstate", pgErr.Code).
			Wrap(resolution.ErrIntegrity)
	case pgerrcode.CheckViolation:
		return oops.Code("CONSTRAINT_CHECK_FAILED").
			With("constraint", pgErr.ConstraintName).
			Wrap(&resolution.ValidationError{Field: pgErr.ColumnName, Message: "violates " + pgErr.ConstraintName})
	}
	return nil
}
