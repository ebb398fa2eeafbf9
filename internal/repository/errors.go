package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("record already exists")

	// ErrQuizHasSubmissions is returned when replacing the questions of a quiz
	// would discard answers already submitted against it.
	ErrQuizHasSubmissions = errors.New("quiz already has submissions")
)

// translate maps driver errors onto the repository's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}
