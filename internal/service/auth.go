// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The service layer knows nothing about HTTP and nothing about SQL. It
// returns domain errors (apperror) that the handler translates to status
// codes, and it talks to storage/mail/persistence through interfaces, so
// every rule in this package is testable with plain function calls and
// in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/secure-file-share/internal/apperror"
	"github.com/sakif/secure-file-share/internal/auth"
	"github.com/sakif/secure-file-share/internal/mail"
	"github.com/sakif/secure-file-share/internal/model"
	"github.com/sakif/secure-file-share/internal/repository"
)

// AuthService orchestrates signup, email verification, login, and session
// resolution.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue/validate session JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - sender     mail.Sender               → verification email dispatch
//   - logger     *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	sender    mail.Sender
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	sender mail.Sender,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		sender:    sender,
		logger:    logger,
	}
}

// Signup registers a new client-role account.
//
// The created user starts unverified, holding a fresh opaque verification
// token. Duplicate emails surface as apperror.ErrConflict — the UNIQUE
// constraint in the repository decides, so concurrent signups with the same
// email resolve to exactly one winner.
//
// EMAIL DISPATCH IS FIRE-AND-FORGET:
// The verification email goes out on a separate goroutine after the user row
// is committed. A mail-transport failure is logged and never undoes the
// signup — the returned user still carries the token, and the signup
// response exposes the verification URL, so the account remains recoverable
// without SMTP.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing signup password: %w", err)
	}

	verificationToken, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating verification token: %w", err)
	}

	user := &model.User{
		Email:             email,
		PasswordHash:      hash,
		Role:              model.RoleClient,
		IsVerified:        false,
		VerificationToken: verificationToken,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err // already a proper apperror on duplicate email
	}

	s.logger.Info("user signed up",
		slog.Int64("userID", user.ID),
		slog.String("role", string(user.Role)),
	)

	go func(to, token string) {
		if err := s.sender.SendVerification(to, token); err != nil {
			s.logger.Error("verification email failed",
				slog.String("to", to),
				slog.String("error", err.Error()),
			)
		}
	}(user.Email, verificationToken)

	return user, nil
}

// VerifyEmail consumes a verification token: the matched user becomes
// verified and the token is cleared in the same write.
//
// NOT IDEMPOTENT BY DESIGN:
// The first call succeeds and clears the token, so a second call with the
// same token no longer matches any user and returns NotFound. The
// AlreadyDone branch only fires if a verified user somehow still holds a
// token — it shouldn't happen, but a clear error beats silently
// re-verifying.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		return err // NotFound for unknown or already-consumed tokens
	}

	if user.IsVerified {
		return apperror.AlreadyDone("email already verified")
	}

	if err := s.users.MarkVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("service/auth: marking user %d verified: %w", user.ID, err)
	}

	s.logger.Info("email verified", slog.Int64("userID", user.ID))
	return nil
}

// Login checks credentials and issues a signed session token with the user's
// email as subject.
//
// All three failure cases — unknown email, wrong password, unverified
// account — return ErrUnauthenticated. Only the message differs, so the
// status code never reveals whether an email is registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthenticated("incorrect username or password")
		}
		return "", fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return "", apperror.Unauthenticated("incorrect username or password")
	}

	if !user.IsVerified {
		return "", apperror.Unauthenticated("please verify your email first")
	}

	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating session token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return token, nil
}

// ResolveSession verifies a bearer token and returns the principal it
// belongs to. Every protected route goes through here (via the auth
// middleware) to establish caller identity and role.
//
// Any failure — bad signature, expiry, malformed token, or a subject that no
// longer resolves to a user — collapses to ErrUnauthenticated.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	email, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthenticated("could not validate credentials")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Unauthenticated("could not validate credentials")
	}

	return user, nil
}

// SeedOpsUser ensures a pre-verified ops account exists with the given
// credentials. There is no HTTP route that creates ops users — operations
// staff are provisioned at startup from configuration.
//
// Creating is not racy in practice (startup runs once), and an existing
// account with the same email is left untouched.
func (s *AuthService) SeedOpsUser(ctx context.Context, email, password string) error {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil // already provisioned
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking ops user %s: %w", email, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing ops password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleOps,
		IsVerified:   true, // provisioned accounts skip email verification
	}
	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("service/auth: seeding ops user %s: %w", email, err)
	}

	s.logger.Info("ops user seeded", slog.Int64("userID", user.ID))
	return nil
}
