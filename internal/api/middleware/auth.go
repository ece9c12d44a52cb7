package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"keygate/internal/pkg/errors"
)

// AdminAuth gates the read API behind a single bearer token. Config
// stores only the bcrypt hash of the token, so a leaked config file does
// not leak the credential.
type AdminAuth struct {
	tokenHash string
}

func NewAdminAuth(tokenHash string) *AdminAuth {
	return &AdminAuth{tokenHash: tokenHash}
}

func (m *AdminAuth) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Admin API is disabled", nil)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Missing authorization header", nil)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid authorization header format", nil)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(m.tokenHash), []byte(parts[1])); err != nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid admin token", nil)
			return
		}

		next(w, r)
	}
}
