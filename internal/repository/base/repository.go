package base

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSlotTaken is returned when a write loses the race on the active-slot
// uniqueness invariant (partial unique index on professional_id, starts_at).
// The storage engine is the arbiter of who won; this sentinel is the
// translated signal.
var ErrSlotTaken = errors.New("active slot already taken")

// ErrTokenConsumed is returned when a redemption finds the token already
// consumed, including the loser of two concurrent redemptions.
var ErrTokenConsumed = errors.New("token already consumed")

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repository
// methods can run inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IsNotFound checks whether the error means "row not found"
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation checks whether err is a PostgreSQL unique violation on
// the named constraint. Any other constraint failure is a genuine error and
// must not be mistaken for the booking race.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
