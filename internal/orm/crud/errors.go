package crud

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Common CRUD error types
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidID is returned when an identifier cannot be converted to the primary key type
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidReference is returned when a foreign key value has the wrong shape
	ErrInvalidReference = errors.New("invalid reference")

	// ErrRelatedNotFound is returned when a foreign key points at a missing record
	ErrRelatedNotFound = errors.New("related record not found")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// ConvertDBError converts database-specific errors to CRUD errors.
// PostgreSQL errors from pgx and lib/pq share SQLSTATE codes; SQLite
// reports constraint failures through extended result codes.
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if converted := convertSQLState(pgErr.Code, pgErr.Detail, pgErr.ColumnName); converted != nil {
			return converted
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if converted := convertSQLState(string(pqErr.Code), pqErr.Detail, pqErr.Column); converted != nil {
			return converted
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", ErrUniqueViolation, liteErr.Error())
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, liteErr.Error())
		case sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%w: %s", ErrNotNullViolation, liteErr.Error())
		case sqlite3.ErrConstraintCheck:
			return fmt.Errorf("%w: %s", ErrCheckViolation, liteErr.Error())
		}
	}

	return err
}

func convertSQLState(code, detail, column string) error {
	switch code {
	case "23505": // unique_violation
		return fmt.Errorf("%w: %s", ErrUniqueViolation, detail)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%w: %s", ErrForeignKeyViolation, detail)
	case "23514": // check_violation
		return fmt.Errorf("%w: %s", ErrCheckViolation, detail)
	case "23502": // not_null_violation
		return fmt.Errorf("%w: column %s", ErrNotNullViolation, column)
	}
	return nil
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is ErrUniqueViolation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

// IsForeignKeyViolation returns true if the error is ErrForeignKeyViolation
func IsForeignKeyViolation(err error) bool {
	return errors.Is(err, ErrForeignKeyViolation)
}

// IsClientError reports whether err was caused by the caller's input rather
// than by the database being unavailable.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidID, ErrInvalidReference, ErrRelatedNotFound,
		ErrUniqueViolation, ErrForeignKeyViolation, ErrCheckViolation,
		ErrNotNullViolation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
