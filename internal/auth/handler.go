package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/digital-seal/digital_seal/internal/account"
	"github.com/digital-seal/digital_seal/internal/middleware"
	"github.com/digital-seal/digital_seal/internal/token"
	"github.com/digital-seal/digital_seal/internal/verification"
)

// Handler exposes the auth endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type walletRequest struct {
	WalletAddress string `json:"wallet_address"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type accountResponse struct {
	ID             string     `json:"id"`
	Email          string     `json:"email,omitempty"`
	WalletAddress  string     `json:"wallet_address,omitempty"`
	Role           string     `json:"role"`
	EmailVerified  bool       `json:"email_verified"`
	WalletVerified bool       `json:"wallet_verified"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

type authResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int64           `json:"expires_in"`
	User         accountResponse `json:"user"`
}

type challengeResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type statusResponse struct {
	Message string `json:"message"`
}

func newAuthResponse(acc account.Account, pair token.Pair) authResponse {
	return authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         newAccountResponse(acc),
	}
}

func newAccountResponse(acc account.Account) accountResponse {
	return accountResponse{
		ID:             acc.ID,
		Email:          acc.Email,
		WalletAddress:  acc.WalletAddress,
		Role:           acc.Role,
		EmailVerified:  acc.EmailVerified,
		WalletVerified: acc.WalletVerified,
		CreatedAt:      acc.CreatedAt,
		LastLoginAt:    acc.LastLoginAt,
	}
}

// Register handles email/password onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, pair, err := h.service.Register(c.UserContext(), req.Email, req.Password, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusCreated).JSON(newAuthResponse(acc, pair))
}

// Login handles email/password sign-in.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, pair, err := h.service.Login(c.UserContext(), req.Email, req.Password, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return translate(err)
	}
	return c.JSON(newAuthResponse(acc, pair))
}

// WalletNonce returns the sign-in challenge for a wallet address.
func (h *Handler) WalletNonce(c *fiber.Ctx) error {
	address := c.Query("address")
	if address == "" {
		return fiber.NewError(http.StatusBadRequest, "address query parameter is required")
	}
	challenge, err := h.service.WalletChallenge(c.UserContext(), address)
	if err != nil {
		return translate(err)
	}
	return c.JSON(challengeResponse{Nonce: challenge.Nonce, Message: challenge.Message})
}

// WalletRegister handles wallet-signature onboarding.
func (h *Handler) WalletRegister(c *fiber.Ctx) error {
	var req walletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, pair, err := h.service.WalletRegister(c.UserContext(), req.WalletAddress, req.Message, req.Signature,
		c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return translate(err)
	}
	return c.Status(http.StatusCreated).JSON(newAuthResponse(acc, pair))
}

// WalletLogin handles wallet-signature sign-in.
func (h *Handler) WalletLogin(c *fiber.Ctx) error {
	var req walletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, pair, err := h.service.WalletLogin(c.UserContext(), req.WalletAddress, req.Message, req.Signature,
		c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return translate(err)
	}
	return c.JSON(newAuthResponse(acc, pair))
}

// Refresh rotates a refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	pair, err := h.service.Refresh(c.UserContext(), req.RefreshToken, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return translate(err)
	}
	return c.JSON(pair)
}

// Logout revokes a refresh token.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return translate(err)
	}
	return c.JSON(statusResponse{Message: "logged out"})
}

// VerifyEmail consumes a verification code for the authenticated account.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req codeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals(middleware.LocalsAccountID).(string)
	if err := h.service.VerifyEmail(c.UserContext(), accountID, req.Code); err != nil {
		return translate(err)
	}
	return c.JSON(statusResponse{Message: "email verified"})
}

// ResendVerification issues a fresh verification code for the authenticated account.
func (h *Handler) ResendVerification(c *fiber.Ctx) error {
	accountID, _ := c.Locals(middleware.LocalsAccountID).(string)
	if err := h.service.ResendVerification(c.UserContext(), accountID); err != nil {
		return translate(err)
	}
	return c.JSON(statusResponse{Message: "verification code sent"})
}

// ForgotPassword triggers a password-reset code. The response is identical
// whether or not the email belongs to an account.
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return translate(err)
	}
	return c.JSON(statusResponse{Message: "if the email exists, a reset code has been sent"})
}

// ResetPassword consumes a reset code and sets a new password.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.ResetPassword(c.UserContext(), req.Email, req.Code, req.NewPassword); err != nil {
		return translate(err)
	}
	return c.JSON(statusResponse{Message: "password reset"})
}

// Me returns the authenticated account's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	accountID, _ := c.Locals(middleware.LocalsAccountID).(string)
	acc, err := h.service.Profile(c.UserContext(), accountID)
	if err != nil {
		return translate(err)
	}
	return c.JSON(newAccountResponse(acc))
}

// translate maps typed flow outcomes to HTTP errors. Anything outside the
// taxonomy becomes an opaque 500.
func translate(err error) error {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidSignature):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountLocked):
		return fiber.NewError(http.StatusLocked, err.Error())
	case errors.Is(err, ErrAccountInactive):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, token.ErrNotFound), errors.Is(err, token.ErrExpired), errors.Is(err, token.ErrRevoked):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAlreadyVerified), errors.Is(err, ErrNoEmail), errors.Is(err, ErrWeakPassword),
		errors.Is(err, verification.ErrNotFound), errors.Is(err, verification.ErrExpired),
		errors.Is(err, verification.ErrTooManyAttempts), errors.Is(err, verification.ErrInvalidCode):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
