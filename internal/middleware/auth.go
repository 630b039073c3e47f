package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"cleancity-backend/internal/services"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier validates a bearer token and returns the identity it
// carries.
type TokenVerifier interface {
	ValidateJWT(token string) (*services.Identity, error)
}

// Auth is the mandatory gate: requests without a valid bearer token are
// rejected with 401 and the handler is never invoked.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := verifiedIdentity(r, verifier)
			if identity == nil {
				respondUnauthorized(w, "Missing or invalid authorization token")
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches identity when a valid token is present and
// continues anonymously otherwise. Verification faults degrade to
// anonymous, never to an error response.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity := verifiedIdentity(r, verifier); identity != nil {
				r = r.WithContext(withIdentity(r.Context(), identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifiedIdentity extracts and verifies the bearer token, returning nil
// on any absence or fault.
func verifiedIdentity(r *http.Request, verifier TokenVerifier) *services.Identity {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil
	}
	identity, err := verifier.ValidateJWT(parts[1])
	if err != nil {
		return nil
	}
	return identity
}

func withIdentity(ctx context.Context, identity *services.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentity extracts the authenticated identity from context, nil when
// anonymous.
func GetIdentity(ctx context.Context) *services.Identity {
	identity, ok := ctx.Value(identityKey).(*services.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetUserID extracts the authenticated user ID from context, empty when
// anonymous.
func GetUserID(ctx context.Context) string {
	if identity := GetIdentity(ctx); identity != nil {
		return identity.UserID
	}
	return ""
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
