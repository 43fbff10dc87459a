// Package auth resolves the caller identity of HTTP requests from Firebase ID
// tokens.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

// TokenVerifier is satisfied by *auth.Client from the Firebase Admin SDK.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// NewFirebaseAuthMiddleware verifies "Authorization: Bearer <idToken>" and
// stores the token's uid in the request context, where
// middleware.GetUserHandleFromContext finds it. Requests without a valid
// token pass through anonymously; each handler decides how to reject them.
func NewFirebaseAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With("component", "FirebaseAuth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idToken, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			tok, err := verifier.VerifyIDToken(r.Context(), idToken)
			if err != nil {
				log.Warn("Rejected ID token", "err", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := middleware.ContextWithUserID(r.Context(), tok.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
