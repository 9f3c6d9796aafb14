package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no refresh token matches the lookup string.
var ErrNotFound = errors.New("refresh token not found")

// Repository persists refresh tokens.
type Repository interface {
	Save(ctx context.Context, rt RefreshToken) error
	FindByToken(ctx context.Context, token string) (RefreshToken, error)
	// Revoke marks a token revoked and reports whether this call flipped the
	// row. Revoking an unknown or already-revoked token returns false with no
	// error, so rotation can use the result as a compare-and-set while logout
	// stays a no-op.
	Revoke(ctx context.Context, token string, at time.Time) (bool, error)
	RevokeAllForAccount(ctx context.Context, accountID string, at time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed refresh token repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Save inserts a refresh token row.
func (r *PostgresRepository) Save(ctx context.Context, rt RefreshToken) error {
	id, err := uuid.Parse(rt.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO refresh_tokens
        (id, account_id, token, expires_at, device_info, ip_address, is_revoked, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, rt.AccountID, rt.Token, rt.ExpiresAt.UTC(), rt.DeviceInfo, rt.IPAddress, rt.Revoked, rt.CreatedAt.UTC())
	return err
}

// FindByToken fetches the row matching the opaque token string.
func (r *PostgresRepository) FindByToken(ctx context.Context, rawToken string) (RefreshToken, error) {
	var rt RefreshToken
	row := r.db.QueryRow(ctx, `SELECT id, account_id, token, expires_at, device_info, ip_address,
        is_revoked, revoked_at, created_at
        FROM refresh_tokens WHERE token = $1`, rawToken)
	err := row.Scan(&rt.ID, &rt.AccountID, &rt.Token, &rt.ExpiresAt, &rt.DeviceInfo, &rt.IPAddress,
		&rt.Revoked, &rt.RevokedAt, &rt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return RefreshToken{}, err
	}
	return rt, nil
}

// Revoke marks the token revoked if it exists and is not revoked yet. The
// WHERE clause serializes concurrent revocations: exactly one caller sees the
// row flip.
func (r *PostgresRepository) Revoke(ctx context.Context, rawToken string, at time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE refresh_tokens
        SET is_revoked = TRUE, revoked_at = $2
        WHERE token = $1 AND NOT is_revoked`, rawToken, at.UTC())
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// RevokeAllForAccount revokes every live token owned by the account.
func (r *PostgresRepository) RevokeAllForAccount(ctx context.Context, accountID string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens
        SET is_revoked = TRUE, revoked_at = $2
        WHERE account_id = $1 AND NOT is_revoked`, accountID, at.UTC())
	return err
}

// Delete removes the row for the given token string.
func (r *PostgresRepository) Delete(ctx context.Context, rawToken string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, rawToken)
	return err
}

// DeleteExpired removes rows whose expiry passed before the given time.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
