package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/sakif/secure-file-share/internal/apperror"
	"github.com/sakif/secure-file-share/internal/auth"
	"github.com/sakif/secure-file-share/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests dependency-free and easy
// to read — you can see exactly what the fake does.
type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("email", "email already registered")
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByVerificationToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.NotFound("user", "")
	}
	for _, u := range f.users {
		if u.VerificationToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", token)
}

func (f *fakeUserRepo) MarkVerified(ctx context.Context, id int64) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	u.IsVerified = true
	u.VerificationToken = ""
	return nil
}

// fakeSender records verification emails on a channel so tests can wait for
// the fire-and-forget dispatch without sleeping.
type sentMail struct {
	to    string
	token string
}

type fakeSender struct {
	sent chan sentMail
	err  error
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan sentMail, 8)}
}

func (f *fakeSender) SendVerification(to, token string) error {
	f.sent <- sentMail{to: to, token: token}
	return f.err
}

func (f *fakeSender) waitForMail(t *testing.T) sentMail {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification email dispatch")
		return sentMail{}
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo, sender *fakeSender) *AuthService {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	passwords := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, tokens, passwords, sender, testLogger())
}

// =========================================================================
// SIGNUP TESTS
// =========================================================================

func TestSignup_CreatesUnverifiedClient(t *testing.T) {
	repo := newFakeUserRepo()
	sender := newFakeSender()
	svc := newTestAuthService(t, repo, sender)

	user, err := svc.Signup(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if user.Role != model.RoleClient {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleClient)
	}
	if user.IsVerified {
		t.Error("new user should start unverified")
	}
	if user.VerificationToken == "" {
		t.Error("new user should hold a verification token")
	}
	if user.PasswordHash == "pw" || user.PasswordHash == "" {
		t.Error("password should be stored hashed")
	}
}

func TestSignup_DispatchesVerificationEmail(t *testing.T) {
	repo := newFakeUserRepo()
	sender := newFakeSender()
	svc := newTestAuthService(t, repo, sender)

	user, err := svc.Signup(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	m := sender.waitForMail(t)
	if m.to != "a@x.com" {
		t.Errorf("email sent to %q, want %q", m.to, "a@x.com")
	}
	if m.token != user.VerificationToken {
		t.Error("emailed token does not match the user's verification token")
	}
}

func TestSignup_DuplicateEmailIsConflict(t *testing.T) {
	repo := newFakeUserRepo()
	sender := newFakeSender()
	svc := newTestAuthService(t, repo, sender)

	if _, err := svc.Signup(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}

	_, err := svc.Signup(context.Background(), "a@x.com", "other")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second Signup() error = %v, want ErrConflict", err)
	}
}

func TestSignup_MailFailureDoesNotUndoSignup(t *testing.T) {
	repo := newFakeUserRepo()
	sender := newFakeSender()
	sender.err = errors.New("smtp: connection refused")
	svc := newTestAuthService(t, repo, sender)

	user, err := svc.Signup(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	sender.waitForMail(t)

	// The user record stays committed despite the transport failure.
	if _, err := repo.GetByEmail(context.Background(), user.Email); err != nil {
		t.Errorf("user should still exist after mail failure, got %v", err)
	}
}

func TestSignup_RejectsBadInput(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeSender())

	for _, tc := range []struct{ email, password string }{
		{"", "pw"},
		{"not-an-email", "pw"},
		{"a@x.com", ""},
	} {
		_, err := svc.Signup(context.Background(), tc.email, tc.password)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Signup(%q, %q) error = %v, want ErrValidation", tc.email, tc.password, err)
		}
	}
}

// =========================================================================
// VERIFY EMAIL TESTS
// =========================================================================

func TestVerifyEmail_TokenIsSingleUse(t *testing.T) {
	repo := newFakeUserRepo()
	sender := newFakeSender()
	svc := newTestAuthService(t, repo, sender)

	user, _ := svc.Signup(context.Background(), "a@x.com", "pw")
	token := user.VerificationToken

	if err := svc.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("first VerifyEmail() error = %v", err)
	}

	verified, _ := repo.GetByEmail(context.Background(), "a@x.com")
	if !verified.IsVerified {
		t.Error("user should be verified")
	}
	if verified.VerificationToken != "" {
		t.Error("verification token should be cleared")
	}

	// Second use of the same token: the token was cleared, so it's a 404
	// case — not AlreadyDone.
	err := svc.VerifyEmail(context.Background(), token)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second VerifyEmail() error = %v, want ErrNotFound", err)
	}
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeSender())

	err := svc.VerifyEmail(context.Background(), "no-such-token")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("VerifyEmail() error = %v, want ErrNotFound", err)
	}
}

func TestVerifyEmail_AlreadyVerifiedUserWithToken(t *testing.T) {
	// Shouldn't happen through the normal flow (verifying clears the
	// token), but a verified user somehow still holding a token must get
	// AlreadyDone, not be silently re-verified.
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeSender())

	repo.users[1] = &model.User{
		ID: 1, Email: "a@x.com", Role: model.RoleClient,
		IsVerified: true, VerificationToken: "stale-token",
	}

	err := svc.VerifyEmail(context.Background(), "stale-token")
	if !errors.Is(err, apperror.ErrAlreadyDone) {
		t.Errorf("VerifyEmail() error = %v, want ErrAlreadyDone", err)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_AllFailuresAreUnauthenticated(t *testing.T) {
	repo := newFakeUserRepo()
	sender := newFakeSender()
	svc := newTestAuthService(t, repo, sender)

	// Registered but unverified account
	if _, err := svc.Signup(context.Background(), "a@x.com", "pw"); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "nonexistent email", email: "nobody@x.com", password: "pw"},
		{name: "wrong password", email: "a@x.com", password: "wrong"},
		{name: "correct password but unverified", email: "a@x.com", password: "pw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, apperror.ErrUnauthenticated) {
				t.Errorf("Login() error = %v, want ErrUnauthenticated", err)
			}
		})
	}
}

func TestLogin_VerifiedUserGetsValidSession(t *testing.T) {
	repo := newFakeUserRepo()
	sender := newFakeSender()
	svc := newTestAuthService(t, repo, sender)

	user, _ := svc.Signup(context.Background(), "a@x.com", "pw")
	if err := svc.VerifyEmail(context.Background(), user.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail() error = %v", err)
	}

	token, err := svc.Login(context.Background(), "a@x.com", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned an empty token")
	}

	// The issued token resolves back to the same principal.
	principal, err := svc.ResolveSession(context.Background(), token)
	if err != nil {
		t.Fatalf("ResolveSession() error = %v", err)
	}
	if principal.Email != "a@x.com" {
		t.Errorf("principal email = %q, want %q", principal.Email, "a@x.com")
	}
	if principal.Role != model.RoleClient {
		t.Errorf("principal role = %q, want %q", principal.Role, model.RoleClient)
	}
}

// =========================================================================
// RESOLVE SESSION TESTS
// =========================================================================

func TestResolveSession_InvalidToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeSender())

	_, err := svc.ResolveSession(context.Background(), "garbage")
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("ResolveSession() error = %v, want ErrUnauthenticated", err)
	}
}

func TestResolveSession_SubjectNoLongerExists(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeSender())

	// A structurally valid token whose subject resolves to nobody.
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	orphan, err := tokens.Generate("ghost@x.com")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	_, err = svc.ResolveSession(context.Background(), orphan)
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("ResolveSession() error = %v, want ErrUnauthenticated", err)
	}
}

// =========================================================================
// OPS SEEDING TESTS
// =========================================================================

func TestSeedOpsUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeSender())

	if err := svc.SeedOpsUser(context.Background(), "ops@x.com", "pw"); err != nil {
		t.Fatalf("SeedOpsUser() error = %v", err)
	}

	ops, err := repo.GetByEmail(context.Background(), "ops@x.com")
	if err != nil {
		t.Fatalf("seeded ops user missing: %v", err)
	}
	if ops.Role != model.RoleOps {
		t.Errorf("seeded role = %q, want %q", ops.Role, model.RoleOps)
	}
	if !ops.IsVerified {
		t.Error("seeded ops user should be pre-verified")
	}

	// Seeding again is a no-op, not an error.
	if err := svc.SeedOpsUser(context.Background(), "ops@x.com", "pw"); err != nil {
		t.Errorf("second SeedOpsUser() error = %v", err)
	}
}
