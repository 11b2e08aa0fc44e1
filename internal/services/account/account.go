// Package account covers user provisioning and authentication: signup
// (id allocation, referral-code allocation, materialized-path computation,
// zero-balance wallet creation) and login (bcrypt + JWT). The deposit
// coordinator trusts the (userId, path) pair minted here.
package account

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"refwallet/internal/infra/pgutils"
	"refwallet/internal/notify"
	"refwallet/internal/referral"
	"refwallet/internal/repos/users"
	pgusers "refwallet/internal/repos/users/postgres"
	"refwallet/internal/repos/wallets"
	pgwallets "refwallet/internal/repos/wallets/postgres"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const referralCodeLength = 8

const referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Service struct {
	db        *sql.DB
	users     users.Users
	wallets   wallets.Wallets
	jwtSecret []byte
	tokenTTL  time.Duration
	otp       *notify.OTPSender
}

type Option func(*Service)

// WithOTPSender enables the signup verification message.
func WithOTPSender(s *notify.OTPSender) Option {
	return func(svc *Service) { svc.otp = s }
}

// WithRepos swaps the repo implementations; used by tests.
func WithRepos(u users.Users, w wallets.Wallets) Option {
	return func(svc *Service) {
		svc.users = u
		svc.wallets = w
	}
}

func New(db *sql.DB, jwtSecret string, opts ...Option) *Service {
	svc := &Service{
		db:        db,
		users:     pgusers.New(db),
		wallets:   pgwallets.New(db),
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  24 * time.Hour,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

type SignupParams struct {
	Name         string
	Email        string
	PhoneNumber  string
	Password     string
	ReferralCode string // the referrer's code, optional
}

type SignupResult struct {
	User  users.User
	Token string
}

// Signup provisions a new member: user row, materialized path, referral code
// and a zero-balance wallet, all in one transaction. The path is written
// after the insert because the id is unknown before creation, and never
// touched again.
func (s *Service) Signup(ctx context.Context, p SignupParams) (SignupResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return SignupResult{}, fmt.Errorf("hash password: %w", err)
	}

	code, err := randomCode(referralCodeLength)
	if err != nil {
		return SignupResult{}, fmt.Errorf("generate referral code: %w", err)
	}

	var created users.User

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		nu := users.NewUser{
			Name:         p.Name,
			Email:        p.Email,
			PhoneNumber:  p.PhoneNumber,
			PasswordHash: string(hash),
			ReferralCode: code,
		}

		var parent users.User

		if p.ReferralCode != "" {
			parent, err = s.users.GetByReferralCode(tx, p.ReferralCode)
			if err != nil {
				return fmt.Errorf("resolve referrer: %w", err)
			}

			nu.ReferredBy = &parent.ID
		}

		created, err = s.users.Create(tx, nu)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		path := buildPath(parent, nu.ReferredBy, created.ID)

		err = s.users.SetPath(tx, created.ID, path)
		if err != nil {
			return fmt.Errorf("set path: %w", err)
		}

		created.Path = path

		_, err = s.wallets.Create(tx, created.ID)
		if err != nil {
			return fmt.Errorf("create wallet: %w", err)
		}

		return nil
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: %w", err)
	}

	if created.PhoneNumber != "" {
		_, oerr := s.otp.SendOTP(ctx, created.PhoneNumber)
		if oerr != nil {
			slog.Warn("signup verification message failed", "user_id", created.ID, "error", oerr)
		}
	}

	token, err := s.issueToken(created)
	if err != nil {
		return SignupResult{}, fmt.Errorf("issue token: %w", err)
	}

	return SignupResult{User: created, Token: token}, nil
}

// Login verifies the credentials and returns a token carrying the verified
// (userId, path) pair.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}

		return "", fmt.Errorf("load user: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return token, nil
}

// buildPath computes the materialized path for a fresh user id. Mirrors the
// provisioning fallbacks: referrer's path extended with the new id, the bare
// pair when the referrer's own path is blank, the id alone for roots.
func buildPath(parent users.User, referredBy *uint64, id uint64) string {
	if referredBy == nil {
		return referral.Root(id).String()
	}

	parentPath, err := referral.Parse(parent.Path)
	if err != nil || len(parentPath) == 0 {
		if err != nil {
			slog.Error("referrer has malformed path, rebuilding from referrer id",
				"referrer_id", *referredBy, "path", parent.Path)
		}

		return strconv.FormatUint(*referredBy, 10) + referral.Delimiter + strconv.FormatUint(id, 10)
	}

	return parentPath.Child(id).String()
}

func randomCode(n int) (string, error) {
	buf := make([]byte, n)

	_, err := rand.Read(buf)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}

	return string(buf), nil
}
