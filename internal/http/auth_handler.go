package httpapi

import (
	"context"
	"errors"
	"net/http"

	"beidao-data/internal/domain"
	"beidao-data/internal/service"

	"go.uber.org/zap"
)

// AuthHandler 注册/登录/刷新 Handler
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler 创建认证 Handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register 用户注册
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	pair, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.logger.Warn("Register failed", zap.String("phone", req.Phone), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tokenPairJSON(pair)))
}

// tokenPairJSON 序列化令牌对（user 走 ToJSON，不带 password_hash）
func tokenPairJSON(p *service.TokenPair) map[string]any {
	return map[string]any{
		"access_token":  p.AccessToken,
		"refresh_token": p.RefreshToken,
		"expires_in":    p.ExpiresIn,
		"user":          p.User.ToJSON(),
	}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.authService.Login)
}

// AdminLogin 管理端登录
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.authService.AdminLogin)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, phone, password string) (*service.TokenPair, error)) {
	var req loginRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	pair, err := fn(r.Context(), req.Phone, req.Password)
	if err != nil {
		h.logger.Warn("Login failed", zap.String("phone", req.Phone), zap.Error(err))
		// 凭证错误统一返回 401
		if errors.Is(err, domain.ErrPermissionDenied) {
			writeJSON(w, http.StatusUnauthorized, Fail("invalid credentials"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tokenPairJSON(pair)))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 刷新令牌
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, Fail("refresh_token is required"))
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			writeJSON(w, http.StatusUnauthorized, FailToken("invalid refresh token"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tokenPairJSON(pair)))
}
