package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
)

// Common repository errors
var (
	ErrNotFound     = errors.New("entity not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrForeignKey   = errors.New("foreign key violation")
)

// PostgreSQL SQLSTATE codes
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// IsForeignKeyViolation checks if the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, pgForeignKeyViolation)
}

// IsDuplicateKeyViolation checks if the error is a unique constraint violation
func IsDuplicateKeyViolation(err error) bool {
	return hasCode(err, pgUniqueViolation)
}

// IsNotFound checks if the error indicates a record was not found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// WrapRepositoryError maps database errors onto AppErrors. Constraint
// violations are caller errors; everything else is a retryable internal one.
func WrapRepositoryError(err error, operation string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsNotFound(err):
		return apperrors.NewNotFoundError(operation).WithCause(ErrNotFound)
	case IsDuplicateKeyViolation(err):
		return apperrors.NewConflictError(fmt.Sprintf("%s: duplicate key", operation)).WithCause(fmt.Errorf("%w: %v", ErrDuplicateKey, err))
	case IsForeignKeyViolation(err):
		return apperrors.NewValidationError("FOREIGN_KEY_VIOLATION", fmt.Sprintf("%s: referenced row does not exist", operation)).WithCause(fmt.Errorf("%w: %v", ErrForeignKey, err))
	case hasCode(err, pgCheckViolation), hasCode(err, pgNotNullViolation):
		return apperrors.NewValidationError("CONSTRAINT_VIOLATION", operation).WithCause(err)
	default:
		return apperrors.NewInternalError(fmt.Sprintf("%s failed", operation)).WithCause(err)
	}
}
