package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/digital-seal/digital_seal/internal/auth"
)

// RegisterAuthRoutes wires authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, jwtmw, rateLimiter fiber.Handler) {
	group := r.Group("/auth")

	group.Post("/register", h.Register)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}

	group.Get("/wallet/nonce", h.WalletNonce)
	group.Post("/wallet/register", h.WalletRegister)
	group.Post("/wallet/login", h.WalletLogin)

	group.Post("/refresh", h.Refresh)
	group.Post("/logout", h.Logout)

	group.Post("/verify-email", jwtmw, h.VerifyEmail)
	group.Post("/resend-verification", jwtmw, h.ResendVerification)
	group.Post("/forgot-password", h.ForgotPassword)
	group.Post("/reset-password", h.ResetPassword)
}
