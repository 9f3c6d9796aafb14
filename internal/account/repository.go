package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no account matches the lookup key.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicate is returned when a unique email or wallet address is already taken.
	ErrDuplicate = errors.New("account already exists")
)

// Repository persists accounts. Counter mutations are atomic with respect to
// concurrent requests for the same account.
type Repository interface {
	Create(ctx context.Context, acc Account) error
	FindByID(ctx context.Context, id string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByWallet(ctx context.Context, address string) (Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByWallet(ctx context.Context, address string) (bool, error)

	// RecordFailedLogin increments the failed-attempt counter, stamps the
	// failure time, and sets the lock flag once the counter reaches threshold.
	// It reports whether the account is locked after the increment.
	RecordFailedLogin(ctx context.Context, id string, threshold int) (bool, error)
	// ResetLoginState zeroes the counter, clears the lock and failure stamp,
	// and records the login time.
	ResetLoginState(ctx context.Context, id string, at time.Time) error
	// ClearLockout zeroes the counter and clears the lock without touching
	// the last-login stamp. Used by password reset.
	ClearLockout(ctx context.Context, id string) error

	UpdatePassword(ctx context.Context, id string, hash []byte) error
	SetEmailVerified(ctx context.Context, id string) error
	// TouchWalletLogin records a wallet login: stamps last-login and replaces
	// the nonce so a captured signature cannot be replayed.
	TouchWalletLogin(ctx context.Context, id, nonce string, at time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, COALESCE(email, ''), password_hash, COALESCE(wallet_address, ''), wallet_nonce,
        role, is_active, email_verified, wallet_verified, is_locked,
        failed_login_attempts, last_failed_login_at, last_login_at, created_at`

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, acc Account) error {
	id, err := uuid.Parse(acc.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts
        (id, email, password_hash, wallet_address, wallet_nonce, role, is_active,
         email_verified, wallet_verified, is_locked, failed_login_attempts, created_at)
        VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, acc.Email, acc.PasswordHash, NormalizeWallet(acc.WalletAddress), acc.WalletNonce,
		acc.Role, acc.Active, acc.EmailVerified, acc.WalletVerified, acc.Locked,
		acc.FailedAttempts, acc.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByID fetches an account by its identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	return r.findBy(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// FindByEmail fetches an account by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.findBy(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// FindByWallet fetches an account by wallet address, case-insensitively.
func (r *PostgresRepository) FindByWallet(ctx context.Context, address string) (Account, error) {
	return r.findBy(ctx, `SELECT `+accountColumns+` FROM accounts WHERE wallet_address = $1`, NormalizeWallet(address))
}

func (r *PostgresRepository) findBy(ctx context.Context, query string, arg any) (Account, error) {
	var acc Account
	row := r.db.QueryRow(ctx, query, arg)
	err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.WalletAddress, &acc.WalletNonce,
		&acc.Role, &acc.Active, &acc.EmailVerified, &acc.WalletVerified, &acc.Locked,
		&acc.FailedAttempts, &acc.LastFailedAt, &acc.LastLoginAt, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

// ExistsByEmail reports whether an account with the email exists.
func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// ExistsByWallet reports whether an account with the wallet address exists.
func (r *PostgresRepository) ExistsByWallet(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE wallet_address = $1)`,
		NormalizeWallet(address)).Scan(&exists)
	return exists, err
}

// RecordFailedLogin bumps the failure counter in a single statement so two
// concurrent failures cannot read the same counter value.
func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, id string, threshold int) (bool, error) {
	var locked bool
	err := r.db.QueryRow(ctx, `UPDATE accounts
        SET failed_login_attempts = failed_login_attempts + 1,
            last_failed_login_at = now(),
            is_locked = is_locked OR failed_login_attempts + 1 >= $2
        WHERE id = $1
        RETURNING is_locked`, id, threshold).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	return locked, err
}

// ResetLoginState clears failure tracking after a successful password login.
func (r *PostgresRepository) ResetLoginState(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts
        SET failed_login_attempts = 0, last_failed_login_at = NULL,
            is_locked = FALSE, last_login_at = $2
        WHERE id = $1`, id, at.UTC())
}

// ClearLockout unconditionally unlocks the account.
func (r *PostgresRepository) ClearLockout(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE accounts
        SET failed_login_attempts = 0, last_failed_login_at = NULL, is_locked = FALSE
        WHERE id = $1`, id)
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	return r.exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
}

// SetEmailVerified marks the account's email as confirmed.
func (r *PostgresRepository) SetEmailVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE accounts SET email_verified = TRUE WHERE id = $1`, id)
}

// TouchWalletLogin stamps the login time and rotates the challenge nonce.
func (r *PostgresRepository) TouchWalletLogin(ctx context.Context, id, nonce string, at time.Time) error {
	return r.exec(ctx, `UPDATE accounts SET last_login_at = $2, wallet_nonce = $3 WHERE id = $1`, id, at.UTC(), nonce)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
