// Package auth coordinates the authentication flows: email/password and
// wallet-signature registration and login, token refresh, logout, email
// verification and password reset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/digital-seal/digital_seal/internal/account"
	"github.com/digital-seal/digital_seal/internal/events"
	"github.com/digital-seal/digital_seal/internal/notification"
	"github.com/digital-seal/digital_seal/internal/signature"
	"github.com/digital-seal/digital_seal/internal/token"
	"github.com/digital-seal/digital_seal/internal/verification"
)

const (
	methodEmail  = "email"
	methodWallet = "wallet"

	minPasswordLength = 8
	sendTimeout       = 10 * time.Second
)

const challengeTemplate = `Sign this message to authenticate with Digital Seal:

Wallet: %s
Nonce: %s
Timestamp: %s

This request will not trigger a blockchain transaction or cost any gas fees.`

// Challenge is the sign-in challenge handed to a wallet.
type Challenge struct {
	Nonce   string
	Message string
}

// Service coordinates the auth flows across the account, token, verification
// and notification collaborators.
type Service struct {
	accounts account.Repository
	guard    *account.Guard
	tokens   *token.Service
	codes    *verification.Service
	verifier *signature.Verifier
	nonces   NonceStore
	notifier notification.Notifier
	events   events.Publisher
	logger   *slog.Logger
}

// NewService wires the auth coordinator.
func NewService(
	accounts account.Repository,
	guard *account.Guard,
	tokens *token.Service,
	codes *verification.Service,
	verifier *signature.Verifier,
	nonces NonceStore,
	notifier notification.Notifier,
	publisher events.Publisher,
	logger *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		guard:    guard,
		tokens:   tokens,
		codes:    codes,
		verifier: verifier,
		nonces:   nonces,
		notifier: notifier,
		events:   publisher,
		logger:   logger,
	}
}

// Register creates an email/password account and issues a token pair. The
// email-verification code is sent in the background.
func (s *Service) Register(ctx context.Context, email, password, deviceInfo, ipAddress string) (account.Account, token.Pair, error) {
	email = normalizeEmail(email)
	if len(password) < minPasswordLength {
		return account.Account{}, token.Pair{}, ErrWeakPassword
	}

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return account.Account{}, token.Pair{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return account.Account{}, token.Pair{}, ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return account.Account{}, token.Pair{}, fmt.Errorf("hash password: %w", err)
	}
	nonce, err := account.NewNonce()
	if err != nil {
		return account.Account{}, token.Pair{}, err
	}

	acc := account.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		WalletNonce:  nonce,
		Role:         account.RoleOwner,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			return account.Account{}, token.Pair{}, ErrAlreadyExists
		}
		return account.Account{}, token.Pair{}, fmt.Errorf("create account: %w", err)
	}
	s.logger.Info("account registered", "account_id", acc.ID, "method", methodEmail)

	code, err := s.codes.Generate(ctx, acc.ID, verification.PurposeEmailVerification)
	if err != nil {
		// The account exists and can request a resend later.
		s.logger.Error("generate verification code", "account_id", acc.ID, "error", err)
	} else {
		s.sendAsync(ctx, acc.ID, "verification code", func(ctx context.Context) error {
			return s.notifier.SendVerificationCode(ctx, acc.Email, code, "")
		})
	}

	pair, err := s.tokens.IssuePair(ctx, acc, deviceInfo, ipAddress)
	if err != nil {
		return account.Account{}, token.Pair{}, err
	}
	s.emit("user registered", s.events.UserRegistered(ctx, acc.ID, methodEmail))
	return acc, pair, nil
}

// Login authenticates an email/password pair. Failed attempts count toward
// the lockout threshold; a successful login resets it.
func (s *Service) Login(ctx context.Context, email, password, deviceInfo, ipAddress string) (account.Account, token.Pair, error) {
	acc, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, token.Pair{}, ErrInvalidCredentials
		}
		return account.Account{}, token.Pair{}, fmt.Errorf("find account: %w", err)
	}
	if acc.Locked {
		return account.Account{}, token.Pair{}, ErrAccountLocked
	}
	if !acc.Active {
		return account.Account{}, token.Pair{}, ErrAccountInactive
	}

	if bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)) != nil {
		locked, gerr := s.guard.RecordFailure(ctx, acc.ID)
		if gerr != nil {
			return account.Account{}, token.Pair{}, fmt.Errorf("record failed login: %w", gerr)
		}
		if locked {
			s.logger.Warn("account locked", "account_id", acc.ID)
		}
		return account.Account{}, token.Pair{}, ErrInvalidCredentials
	}

	if err := s.guard.RecordSuccess(ctx, acc.ID); err != nil {
		return account.Account{}, token.Pair{}, fmt.Errorf("reset login state: %w", err)
	}

	pair, err := s.tokens.IssuePair(ctx, acc, deviceInfo, ipAddress)
	if err != nil {
		return account.Account{}, token.Pair{}, err
	}
	s.emit("user logged in", s.events.UserLoggedIn(ctx, acc.ID, methodEmail))
	return acc, pair, nil
}

// WalletChallenge returns the nonce and sign-in message for the address. A
// registered wallet gets its stored nonce; an unknown wallet gets a fresh
// nonce held server-side until registration consumes it or it expires.
func (s *Service) WalletChallenge(ctx context.Context, address string) (Challenge, error) {
	address = account.NormalizeWallet(address)

	var nonce string
	acc, err := s.accounts.FindByWallet(ctx, address)
	switch {
	case err == nil:
		nonce = acc.WalletNonce
	case errors.Is(err, account.ErrNotFound):
		nonce, err = account.NewNonce()
		if err != nil {
			return Challenge{}, err
		}
		if err := s.nonces.Put(ctx, address, nonce); err != nil {
			return Challenge{}, fmt.Errorf("store pending nonce: %w", err)
		}
	default:
		return Challenge{}, fmt.Errorf("find account: %w", err)
	}

	return Challenge{Nonce: nonce, Message: challengeMessage(address, nonce)}, nil
}

// WalletRegister creates an account for a wallet that signed the challenge it
// was issued. The pending nonce is consumed on success.
func (s *Service) WalletRegister(ctx context.Context, address, message, sig, deviceInfo, ipAddress string) (account.Account, token.Pair, error) {
	address = account.NormalizeWallet(address)

	exists, err := s.accounts.ExistsByWallet(ctx, address)
	if err != nil {
		return account.Account{}, token.Pair{}, fmt.Errorf("check wallet: %w", err)
	}
	if exists {
		return account.Account{}, token.Pair{}, ErrAlreadyExists
	}

	nonce, err := s.nonces.Get(ctx, address)
	if err != nil {
		if errors.Is(err, ErrNonceNotFound) {
			return account.Account{}, token.Pair{}, ErrInvalidSignature
		}
		return account.Account{}, token.Pair{}, fmt.Errorf("load pending nonce: %w", err)
	}
	if !messageEmbedsNonce(message, nonce) || !s.verifier.Verify(address, message, sig) {
		return account.Account{}, token.Pair{}, ErrInvalidSignature
	}

	// Fresh nonce for the first login; the registration nonce is spent.
	next, err := account.NewNonce()
	if err != nil {
		return account.Account{}, token.Pair{}, err
	}
	acc := account.Account{
		ID:             uuid.NewString(),
		WalletAddress:  address,
		WalletNonce:    next,
		Role:           account.RoleOwner,
		Active:         true,
		WalletVerified: true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			return account.Account{}, token.Pair{}, ErrAlreadyExists
		}
		return account.Account{}, token.Pair{}, fmt.Errorf("create account: %w", err)
	}
	if err := s.nonces.Delete(ctx, address); err != nil {
		s.logger.Warn("delete pending nonce", "address", address, "error", err)
	}
	s.logger.Info("account registered", "account_id", acc.ID, "method", methodWallet)

	pair, err := s.tokens.IssuePair(ctx, acc, deviceInfo, ipAddress)
	if err != nil {
		return account.Account{}, token.Pair{}, err
	}
	s.emit("user registered", s.events.UserRegistered(ctx, acc.ID, methodWallet))
	return acc, pair, nil
}

// WalletLogin authenticates a wallet by a signature over a message embedding
// the account's current nonce, then regenerates the nonce so the signature
// cannot be replayed on a later session.
func (s *Service) WalletLogin(ctx context.Context, address, message, sig, deviceInfo, ipAddress string) (account.Account, token.Pair, error) {
	acc, err := s.accounts.FindByWallet(ctx, address)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, token.Pair{}, ErrNotFound
		}
		return account.Account{}, token.Pair{}, fmt.Errorf("find account: %w", err)
	}
	if !acc.Active {
		return account.Account{}, token.Pair{}, ErrAccountInactive
	}
	if !messageEmbedsNonce(message, acc.WalletNonce) || !s.verifier.Verify(acc.WalletAddress, message, sig) {
		return account.Account{}, token.Pair{}, ErrInvalidSignature
	}

	next, err := account.NewNonce()
	if err != nil {
		return account.Account{}, token.Pair{}, err
	}
	now := time.Now().UTC()
	if err := s.accounts.TouchWalletLogin(ctx, acc.ID, next, now); err != nil {
		return account.Account{}, token.Pair{}, fmt.Errorf("record wallet login: %w", err)
	}
	acc.WalletNonce = next
	acc.LastLoginAt = &now

	pair, err := s.tokens.IssuePair(ctx, acc, deviceInfo, ipAddress)
	if err != nil {
		return account.Account{}, token.Pair{}, err
	}
	s.emit("user logged in", s.events.UserLoggedIn(ctx, acc.ID, methodWallet))
	return acc, pair, nil
}

// Refresh rotates the refresh token into a fresh pair.
func (s *Service) Refresh(ctx context.Context, rawToken, deviceInfo, ipAddress string) (token.Pair, error) {
	return s.tokens.Rotate(ctx, rawToken, deviceInfo, ipAddress)
}

// Logout revokes the refresh token. Unknown tokens are accepted silently so
// logout never fails user-visibly.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	accountID := ""
	if rt, err := s.tokens.FindByToken(ctx, rawToken); err == nil {
		accountID = rt.AccountID
	}
	if err := s.tokens.Revoke(ctx, rawToken); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if accountID != "" {
		s.emit("user logged out", s.events.UserLoggedOut(ctx, accountID))
	}
	return nil
}

// LogoutAll revokes every live refresh token of the account.
func (s *Service) LogoutAll(ctx context.Context, accountID string) error {
	if err := s.tokens.RevokeAllForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("revoke account tokens: %w", err)
	}
	s.emit("user logged out", s.events.UserLoggedOut(ctx, accountID))
	return nil
}

// VerifyEmail consumes an email-verification code and marks the email verified.
func (s *Service) VerifyEmail(ctx context.Context, accountID, code string) error {
	acc, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.EmailVerified {
		return ErrAlreadyVerified
	}
	if err := s.codes.Verify(ctx, acc.ID, code, verification.PurposeEmailVerification); err != nil {
		return err
	}
	if err := s.accounts.SetEmailVerified(ctx, acc.ID); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	s.logger.Info("email verified", "account_id", acc.ID)
	return nil
}

// ResendVerification issues a fresh email-verification code, invalidating any
// outstanding one.
func (s *Service) ResendVerification(ctx context.Context, accountID string) error {
	acc, err := s.findByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.EmailVerified {
		return ErrAlreadyVerified
	}
	if acc.Email == "" {
		return ErrNoEmail
	}
	code, err := s.codes.Generate(ctx, acc.ID, verification.PurposeEmailVerification)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}
	s.sendAsync(ctx, acc.ID, "verification code", func(ctx context.Context) error {
		return s.notifier.SendVerificationCode(ctx, acc.Email, code, "")
	})
	return nil
}

// ForgotPassword sends a password-reset code if the email belongs to an
// account. It reports success either way to prevent account enumeration.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	acc, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.logger.Warn("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("find account: %w", err)
	}
	code, err := s.codes.Generate(ctx, acc.ID, verification.PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	s.sendAsync(ctx, acc.ID, "password reset code", func(ctx context.Context) error {
		return s.notifier.SendPasswordResetCode(ctx, acc.Email, code, "")
	})
	return nil
}

// ResetPassword consumes a password-reset code, replaces the password hash and
// unconditionally clears the lockout state.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	acc, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("find account: %w", err)
	}
	if err := s.codes.Verify(ctx, acc.ID, code, verification.PurposePasswordReset); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, acc.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.guard.ClearLock(ctx, acc.ID); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	s.logger.Info("password reset", "account_id", acc.ID)
	return nil
}

// Profile returns the account for an authenticated subject.
func (s *Service) Profile(ctx context.Context, accountID string) (account.Account, error) {
	return s.findByID(ctx, accountID)
}

func (s *Service) findByID(ctx context.Context, accountID string) (account.Account, error) {
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Account{}, ErrNotFound
		}
		return account.Account{}, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

// sendAsync delivers a notification in the background. Failures are logged,
// never surfaced to the flow that triggered the send.
func (s *Service) sendAsync(ctx context.Context, accountID, what string, send func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Error("send "+what, "account_id", accountID, "error", err)
		}
	}()
}

func (s *Service) emit(what string, err error) {
	if err != nil {
		s.logger.Warn("publish "+what, "error", err)
	}
}

func challengeMessage(address, nonce string) string {
	return fmt.Sprintf(challengeTemplate, address, nonce, time.Now().UTC().Format(time.RFC3339))
}

func messageEmbedsNonce(message, nonce string) bool {
	return nonce != "" && strings.Contains(message, "Nonce: "+nonce)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
