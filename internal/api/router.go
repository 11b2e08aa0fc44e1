package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"refwallet/internal/services/account"
	"refwallet/internal/services/deposit"
)

// NewRouter registers all API endpoints.
func NewRouter(accounts *account.Service, deposits *deposit.Service) http.Handler {
	h := NewHandler(accounts, deposits)
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/signup", h.SignupHandler)
	r.Post("/login", h.LoginHandler)

	r.Route("/wallet", func(r chi.Router) {
		r.Use(AuthMiddleware(accounts))

		r.Post("/deposit", h.DepositHandler)
		r.Get("/balance", h.BalanceHandler)
		r.Get("/transactions", h.TransactionsHandler)
	})

	return r
}
