package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no unused code exists for the account and purpose.
var ErrNotFound = errors.New("verification code not found")

// Repository persists verification codes.
type Repository interface {
	Save(ctx context.Context, c Code) error
	FindLatestUnused(ctx context.Context, accountID string, purpose Purpose) (Code, error)
	InvalidateAllUnused(ctx context.Context, accountID string, purpose Purpose) error
	// IncrementAttempts atomically bumps the attempt counter and returns the
	// post-increment value.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	MarkUsed(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed verification code repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts a verification code row.
func (r *PostgresRepository) Save(ctx context.Context, c Code) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO verification_codes
        (id, account_id, code, purpose, expires_at, is_used, attempts, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, c.AccountID, c.Code, string(c.Purpose), c.ExpiresAt.UTC(), c.Used, c.Attempts, c.CreatedAt.UTC())
	return err
}

// FindLatestUnused returns the most recently created unused code.
func (r *PostgresRepository) FindLatestUnused(ctx context.Context, accountID string, purpose Purpose) (Code, error) {
	var c Code
	row := r.db.QueryRow(ctx, `SELECT id, account_id, code, purpose, expires_at, is_used, attempts, created_at
        FROM verification_codes
        WHERE account_id = $1 AND purpose = $2 AND NOT is_used
        ORDER BY created_at DESC
        LIMIT 1`, accountID, string(purpose))
	err := row.Scan(&c.ID, &c.AccountID, &c.Code, &c.Purpose, &c.ExpiresAt, &c.Used, &c.Attempts, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Code{}, ErrNotFound
	}
	if err != nil {
		return Code{}, err
	}
	return c, nil
}

// InvalidateAllUnused marks every unused code of the purpose as used.
func (r *PostgresRepository) InvalidateAllUnused(ctx context.Context, accountID string, purpose Purpose) error {
	_, err := r.db.Exec(ctx, `UPDATE verification_codes SET is_used = TRUE
        WHERE account_id = $1 AND purpose = $2 AND NOT is_used`, accountID, string(purpose))
	return err
}

// IncrementAttempts bumps the counter in a single statement so concurrent
// guesses each consume a distinct slot.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `UPDATE verification_codes SET attempts = attempts + 1
        WHERE id = $1 RETURNING attempts`, id).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return attempts, err
}

// MarkUsed consumes the code.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE verification_codes SET is_used = TRUE WHERE id = $1`, id)
	return err
}

// DeleteExpired removes codes whose expiry passed before the given time,
// regardless of use state.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
