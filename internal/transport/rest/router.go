package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/my-other-app/moa-backend/internal/auth"
	"github.com/my-other-app/moa-backend/internal/payment"
	"github.com/my-other-app/moa-backend/internal/transport/middleware"
	"github.com/my-other-app/moa-backend/internal/transport/swagger"
)

// RegisterAllRoutes mounts the API under /api/v1. Order creation requires a
// bearer token; verification and the webhook endpoint are unauthenticated
// because the gateway and the checkout page call them directly.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	tokens *auth.TokenService,
	authHandler *auth.Handler,
	paymentHandler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Post("/auth/login", authHandler.Login)

		r.Route("/payments", func(pr chi.Router) {
			pr.Post("/webhook", webhookHandler.HandleWebhook)
			pr.Post("/verify", paymentHandler.VerifyPayment)

			pr.Group(func(ar chi.Router) {
				ar.Use(tokens.Middleware)
				ar.Post("/orders", paymentHandler.CreateOrder)
			})
		})
	})
}
