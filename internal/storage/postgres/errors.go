package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/rryowa/authsession/internal/storage"
)

const (
	uniqueViolationCode = "23505"

	// users_username_key is a unique index on lower(username)

	usersUsernameConstraint = "users_username_key"
	usersEmailConstraint    = "users_email_key"
)

// mapUniqueViolation translates a unique-constraint failure on users into a
// storage error. Both lib/pq and pgx error types are understood.
func mapUniqueViolation(err error) error {
	var constraint string

	var pqErr *pq.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode:
		constraint = pqErr.Constraint
	case errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode:
		constraint = pgErr.ConstraintName
	default:
		return nil
	}

	switch constraint {
	case usersUsernameConstraint:
		return storage.ErrUsernameTaken
	case usersEmailConstraint:
		return storage.ErrEmailTaken
	default:
		return nil
	}
}
