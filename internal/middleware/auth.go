package middleware

import (
	"net/http"
	"strings"

	"github.com/HammerMeetNail/giftcircle/internal/apperr"
	"github.com/HammerMeetNail/giftcircle/internal/handlers"
	"github.com/HammerMeetNail/giftcircle/internal/models"
	"github.com/HammerMeetNail/giftcircle/internal/services"
)

// TokenValidator is implemented by services.AuthService.
type TokenValidator interface {
	ValidateToken(token string) (*services.TokenClaims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth rejects requests without a valid bearer token. The token's
// claims become the request user; handlers that need the full profile load it.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, apperr.Unauthorized("No token provided"))
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil || claims == nil {
			writeError(w, services.ErrInvalidToken)
			return
		}

		user := &models.User{ID: claims.UserID, Username: claims.Username}
		next.ServeHTTP(w, r.WithContext(handlers.SetUserInContext(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
