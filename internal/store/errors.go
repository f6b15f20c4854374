package store

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/breeze-rmm/breeze/internal/apperr"
)

// pgUniqueViolation is the Postgres error code for a unique constraint
// violation (23505).
const pgUniqueViolation = "23505"

// pgForeignKeyViolation is the Postgres error code for a foreign key
// violation (23503).
const pgForeignKeyViolation = "23503"

// mapErr translates a raw pgx/pgconn error into the apperr taxonomy so
// callers never branch on driver-specific error values.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("resource not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict("already exists: " + pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return apperr.Validation("referenced row does not exist", map[string]any{"constraint": pgErr.ConstraintName})
		}
	}
	return apperr.TransientStoreFailure("store operation failed", err)
}
