package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/digital-seal/digital_seal/internal/account"
	"github.com/digital-seal/digital_seal/internal/auth"
	"github.com/digital-seal/digital_seal/internal/config"
	"github.com/digital-seal/digital_seal/internal/events"
	"github.com/digital-seal/digital_seal/internal/middleware"
	"github.com/digital-seal/digital_seal/internal/notification"
	"github.com/digital-seal/digital_seal/internal/signature"
	"github.com/digital-seal/digital_seal/internal/token"
	"github.com/digital-seal/digital_seal/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Services bundles the constructed service layer so main can reuse it (sweeper).
type Services struct {
	Auth   *auth.Service
	Tokens *token.Service
	Codes  *verification.Service
}

// Setup configures middlewares and all application routes. It returns the
// wired services so the caller can hand them to background jobs.
func Setup(app *fiber.App, d Deps) (Services, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Repositories, with in-memory fallbacks for dev mode.
	var accountRepo account.Repository
	var tokenRepo token.Repository
	var codeRepo verification.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		tokenRepo = token.NewPostgresRepository(d.DB)
		codeRepo = verification.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		tokenRepo = token.NewMemoryRepository()
		codeRepo = verification.NewMemoryRepository()
	}

	// Services
	guard := account.NewGuard(accountRepo, d.Cfg.LockoutThreshold)
	tokenSvc := token.NewService(tokenRepo, accountRepo, []byte(d.Cfg.JWTSecret), d.Cfg.AccessTokenTTL, d.Cfg.RefreshTokenTTL)
	codeSvc := verification.NewService(codeRepo, d.Logger, d.Cfg.CodeTTL, d.Cfg.CodeMaxAttempts)
	verifier := signature.NewVerifier(d.Logger)

	var nonces auth.NonceStore
	if d.Cache != nil {
		nonces = auth.NewRedisNonceStore(d.Cache, d.Cfg.NonceTTL)
	} else {
		nonces = auth.NewMemoryNonceStore(d.Cfg.NonceTTL)
	}

	var notifier notification.Notifier
	if d.Cfg.SMTPHost != "" {
		notifier = notification.NewSMTPNotifier(d.Cfg.SMTPHost, d.Cfg.SMTPPort, d.Cfg.MailFrom, d.Cfg.MailFromName)
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	authSvc := auth.NewService(accountRepo, guard, tokenSvc, codeSvc, verifier, nonces, notifier, d.Publisher, d.Logger)
	authHandler := auth.NewHandler(authSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	jwtmw := middleware.JWTAuth(tokenSvc)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 10)
	RegisterAuthRoutes(api, authHandler, jwtmw, rateLimiter)

	// Protected profile endpoint
	protected := api.Group("", jwtmw)
	protected.Get("/me", authHandler.Me)

	return Services{Auth: authSvc, Tokens: tokenSvc, Codes: codeSvc}, nil
}
