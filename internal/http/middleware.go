package httpapi

import (
	"context"
	"net/http"
	"strings"

	"beidao-data/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

// identityFromContext 取出认证中间件注入的身份，未认证返回 nil
func identityFromContext(ctx context.Context) *service.Identity {
	identity, _ := ctx.Value(identityKey).(*service.Identity)
	return identity
}

// AuthMiddleware Bearer token 认证中间件
type AuthMiddleware struct {
	authService service.AuthService
}

func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require 必须携带有效 access token
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := m.authenticate(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, FailToken("invalid or expired token"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	}
}

// RequireAdmin 必须为管理员
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.Require(func(w http.ResponseWriter, r *http.Request) {
		identity := identityFromContext(r.Context())
		if identity == nil || !identity.IsAdmin {
			writeJSON(w, http.StatusForbidden, Fail("admin privilege required"))
			return
		}
		next(w, r)
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*service.Identity, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return nil, false
	}
	identity, err := m.authService.ParseAccessToken(token)
	if err != nil {
		return nil, false
	}
	return identity, true
}
