package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/secure-file-share/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "user", u), ANY package that knows the string "user"
// can read or shadow your value. Using a package-private type prevents collisions:
// only THIS package can create a key of type contextKey, so only this package
// can read or write the principal in the context.
type contextKey string

const principalKey contextKey = "principal"

// SessionResolver turns a bearer token string into the authenticated user.
// It is implemented by the auth service; the middleware depends on this
// small interface rather than on the service package directly.
type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "Authorization: Bearer <token>" header, resolves
// it to a full user record, and stores that principal in the request
// context. If the header is missing or the token invalid, it returns
// 401 Unauthorized and stops the request chain.
//
// RESOLVING THE FULL PRINCIPAL (not just an ID):
// Every protected route here needs the caller's role to decide whether the
// operation is allowed. Resolving the user once in the middleware means the
// role check downstream is a plain field comparison — no handler re-derives
// identity from the token.
func RequireAuth(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			user, err := sessions.ResolveSession(r.Context(), token)
			if err != nil {
				unauthorized(w)
				return
			}

			// Store the principal in context so handlers can read it
			ctx := context.WithValue(r.Context(), principalKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext retrieves the authenticated user from the request context.
//
// Returns (nil, false) if the request never passed through RequireAuth.
//
// Usage in handlers:
//
//	user, ok := auth.PrincipalFromContext(r.Context())
//	if !ok {
//	    // route was wired without RequireAuth — a programming error
//	}
func PrincipalFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(principalKey).(*model.User)
	return u, ok && u != nil
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	// WWW-Authenticate tells well-behaved clients which scheme to retry with.
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthenticated","message":"valid authentication required"}`))
}
