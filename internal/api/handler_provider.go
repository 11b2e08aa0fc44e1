package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"refwallet/internal/money"
	"refwallet/internal/repos/users"
	"refwallet/internal/repos/wallets"
	"refwallet/internal/services/account"
	"refwallet/internal/services/deposit"
)

const defaultHistoryLimit = 20

// HandlerProvider wraps the services and exposes HTTP handlers.
type HandlerProvider struct {
	accounts *account.Service
	deposits *deposit.Service
}

// NewHandler returns a new handler provider.
func NewHandler(accounts *account.Service, deposits *deposit.Service) *HandlerProvider {
	return &HandlerProvider{accounts: accounts, deposits: deposits}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB cap
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return false
		}

		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}

	return true
}

// --- Signup / login ---

type signupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	Password     string `json:"password"`
	ReferralCode string `json:"referralCode"`
}

type userResponse struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Path         string `json:"path"`
	ReferralCode string `json:"referralCode"`
}

// SignupHandler handles POST /signup.
func (h *HandlerProvider) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	res, err := h.accounts.Signup(r.Context(), account.SignupParams{
		Name:         req.Name,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			writeError(w, http.StatusConflict, "email already in use")
		case errors.Is(err, users.ErrReferralCodeNotFound):
			writeError(w, http.StatusNotFound, "referral code not found")
		default:
			slog.Error("signup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": userResponse{
			ID:           res.User.ID,
			Name:         res.User.Name,
			Email:        res.User.Email,
			Path:         res.User.Path,
			ReferralCode: res.User.ReferralCode,
		},
		"token": res.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler handles POST /login.
func (h *HandlerProvider) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	token, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}

		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- Wallet ---

type depositRequest struct {
	Amount json.Number `json:"amount"`
}

// DepositHandler handles POST /wallet/deposit. The amount arrives as a JSON
// number; anything that does not parse as a finite positive decimal is an
// invalid amount.
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := money.Parse(req.Amount.String())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid deposit amount")
		return
	}

	receipt, err := h.deposits.Deposit(r.Context(), claims.UserID, claims.Path, amount)
	if err != nil {
		switch {
		case errors.Is(err, deposit.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, "invalid deposit amount")
		case errors.Is(err, wallets.ErrWalletNotFound):
			writeError(w, http.StatusNotFound, "wallet not found")
		default:
			slog.Error("deposit failed", "user_id", claims.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}

		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"depositAmount": money.Format(receipt.DepositAmount),
		"newBalance":    money.Format(receipt.NewBalance),
	})
}

// BalanceHandler handles GET /wallet/balance.
func (h *HandlerProvider) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	balance, err := h.deposits.Balance(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, wallets.ErrWalletNotFound) {
			writeError(w, http.StatusNotFound, "wallet not found")
			return
		}

		slog.Error("balance read failed", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":  claims.UserID,
		"balance": money.Format(balance),
	})
}

type transactionResponse struct {
	ID        uint64 `json:"id"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Remark    string `json:"remark"`
	CreatedAt string `json:"createdAt"`
}

// TransactionsHandler handles GET /wallet/transactions.
func (h *HandlerProvider) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.deposits.History(r.Context(), claims.UserID, defaultHistoryLimit)
	if err != nil {
		if errors.Is(err, wallets.ErrWalletNotFound) {
			writeError(w, http.StatusNotFound, "wallet not found")
			return
		}

		slog.Error("history read failed", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	out := make([]transactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, transactionResponse{
			ID:        e.ID,
			Reference: e.Reference.String(),
			Amount:    money.Format(e.Amount),
			Type:      string(e.Type),
			Status:    string(e.Status),
			Remark:    e.Remark,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}
