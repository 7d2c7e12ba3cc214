package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/secure-file-share/internal/apperror"
	"github.com/sakif/secure-file-share/internal/service"
)

// AuthHandler exposes the signup / verify / login flow over HTTP.
//
// ROUTES:
//   - POST /auth/signup/client       → register a client account
//   - POST /auth/verify-email/{token} → consume a verification token
//   - POST /auth/login               → exchange credentials for a bearer token
//
// The handler only parses requests and shapes responses; every rule lives in
// the AuthService.
type AuthHandler struct {
	authSvc *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, logger: logger}
}

// signupRequest is the JSON body for POST /auth/signup/client.
type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the login response body. TokenType is always "bearer" —
// the label clients put in the Authorization header scheme.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HandleSignupClient registers a new client account.
//
// HTTP: POST /auth/signup/client
// BODY: {"email": "...", "password": "..."}
//
// The 200 response carries the verification URL fragment in addition to the
// emailed link, so the flow can be completed without a working SMTP setup.
// That does mean anyone who can call signup can self-verify; see DESIGN.md
// for why this behavior is kept.
func (h *AuthHandler) HandleSignupClient(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, err := h.authSvc.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":          "Verification email sent",
		"verification_url": "/verify-email/" + user.VerificationToken,
	})
}

// HandleVerifyEmail consumes a verification token from the URL path.
//
// HTTP: POST /auth/verify-email/{token}
//
// The token is single-use: success clears it, so replaying the same URL
// returns 404.
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, apperror.ValidationFailed("token", "verification token is required"))
		return
	}

	if err := h.authSvc.VerifyEmail(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified successfully",
	})
}

// HandleLogin exchanges credentials for a signed bearer token.
//
// HTTP: POST /auth/login
// BODY: form-encoded username & password (OAuth2 password-grant shape — the
// "username" field carries the email)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid form body"))
		return
	}

	email := r.PostFormValue("username")
	password := r.PostFormValue("password")

	token, err := h.authSvc.Login(r.Context(), email, password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
