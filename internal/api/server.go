package api

import (
	"fmt"
	"net/http"
	"time"

	"refwallet/internal/services/account"
	"refwallet/internal/services/deposit"
)

// NewServer creates a configured *http.Server for the wallet API.
func NewServer(port uint16, accounts *account.Service, deposits *deposit.Service) *http.Server {
	mux := NewRouter(accounts, deposits)

	addr := fmt.Sprintf(":%d", port)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
