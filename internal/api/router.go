// internal/api/router.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cardvault/internal/api/handler"
	"cardvault/internal/service"
)

// NewRouter sets up and returns the HTTP router.
func NewRouter(
	authHandler *handler.AuthHandler,
	cardHandler *handler.CardHandler,
	transactionHandler *handler.TransactionHandler,
	userHandler *handler.UserHandler,
	auth service.AuthService,
) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Public routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(auth))

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cardHandler.Search)
			r.Post("/lookup", cardHandler.Lookup)
			r.Get("/{cardID}", cardHandler.Get)
			r.Post("/{cardID}/block", cardHandler.Block)
		})

		r.Post("/transfers", transactionHandler.Transfer)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactionHandler.Search)
			r.Get("/{transactionID}", transactionHandler.Get)
			r.Post("/{transactionID}/cancel", transactionHandler.Cancel)
		})

		r.Get("/users/me", userHandler.Me)

		// Admin-only routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequirePrivileged)

			r.Post("/cards", cardHandler.Create)
			r.Post("/cards/{cardID}/activate", cardHandler.Activate)
			r.Delete("/cards/{cardID}", cardHandler.Delete)
			r.Post("/cards/{cardID}/deposit", cardHandler.Deposit)
			r.Post("/cards/{cardID}/withdraw", cardHandler.Withdraw)

			r.Get("/users", userHandler.List)
			r.Get("/users/{userID}", userHandler.Get)
			r.Patch("/users/{userID}/active", userHandler.SetActive)
			r.Delete("/users/{userID}", userHandler.Delete)

			r.Post("/sweeps/expiry", transactionHandler.SweepExpiry)
			r.Post("/sweeps/stale", transactionHandler.SweepStale)
		})
	})

	return r
}
