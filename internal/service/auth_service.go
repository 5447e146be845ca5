package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 中国大陆手机号
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// AuthService 注册/登录/令牌服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*TokenPair, error)
	Login(ctx context.Context, phone, password string) (*TokenPair, error)
	// 管理端登录：非管理员账号直接拒绝
	AdminLogin(ctx context.Context, phone, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// 校验 access token，返回身份；失效/类型不符返回 ErrPermissionDenied
	ParseAccessToken(tokenString string) (*Identity, error)
	// 启动时保证管理员账号存在
	EnsureAdmin(ctx context.Context, phone, password string) error
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// TokenPair 登录/注册/刷新的统一返回
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // access token 有效期（秒）
	User         *domain.User `json:"user"`
}

// Identity 从 access token 解析出的调用者身份
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// AuthConfig JWT 签发参数
type AuthConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type authService struct {
	usersRepo repository.UsersRepository
	cfg       AuthConfig
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(usersRepo repository.UsersRepository, cfg AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		usersRepo: usersRepo,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*TokenPair, error) {
	if !phonePattern.MatchString(req.Phone) {
		return nil, fmt.Errorf("invalid phone number: %w", domain.ErrValidation)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters: %w", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	nickname := req.Nickname
	if nickname == "" {
		// 默认昵称：手机号打码
		nickname = req.Phone[:3] + "****" + req.Phone[7:]
	}
	user := &domain.User{
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Nickname:     nickname,
		IsActive:     true,
	}
	id, err := s.usersRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	created, err := s.usersRepo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.Int64("user_id", created.ID),
		zap.String("phone", created.Phone),
	)
	return s.issueTokens(ctx, created)
}

func (s *authService) Login(ctx context.Context, phone, password string) (*TokenPair, error) {
	return s.login(ctx, phone, password, false)
}

func (s *authService) AdminLogin(ctx context.Context, phone, password string) (*TokenPair, error) {
	return s.login(ctx, phone, password, true)
}

func (s *authService) login(ctx context.Context, phone, password string, requireAdmin bool) (*TokenPair, error) {
	user, err := s.usersRepo.GetUserByPhone(ctx, phone)
	if err != nil {
		// 不区分账号不存在与密码错误
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrPermissionDenied)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrPermissionDenied)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrPermissionDenied)
	}
	if requireAdmin && !user.IsAdmin {
		return nil, fmt.Errorf("admin account required: %w", domain.ErrPermissionDenied)
	}

	if err := s.usersRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	} else if fresh, err := s.usersRepo.GetUser(ctx, user.ID); err == nil {
		user = fresh
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", domain.ErrPermissionDenied)
	}
	var userID int64
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", domain.ErrPermissionDenied)
	}

	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrPermissionDenied)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrPermissionDenied)
	}
	return s.issueTokens(ctx, user)
}

func (s *authService) ParseAccessToken(tokenString string) (*Identity, error) {
	claims, err := s.parseToken(tokenString, "access")
	if err != nil {
		return nil, err
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", domain.ErrPermissionDenied)
	}
	var userID int64
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", domain.ErrPermissionDenied)
	}
	isAdmin, _ := claims["is_admin"].(bool)
	return &Identity{UserID: userID, IsAdmin: isAdmin}, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, phone, password string) error {
	if phone == "" || password == "" {
		return nil
	}
	if _, err := s.usersRepo.GetUserByPhone(ctx, phone); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &domain.User{
		Phone:        phone,
		PasswordHash: string(hash),
		Nickname:     "管理员",
		IsAdmin:      true,
		IsActive:     true,
	}
	if _, err := s.usersRepo.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	s.logger.Info("admin user seeded", zap.String("phone", phone))
	return nil
}

func (s *authService) issueTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	now := time.Now()
	access, err := s.signToken(user, "access", now, s.cfg.AccessExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.signToken(user, "refresh", now, s.cfg.RefreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.cfg.AccessExpiry.Seconds()),
		User:         user,
	}, nil
}

func (s *authService) signToken(user *domain.User, tokenType string, now time.Time, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"is_admin": user.IsAdmin,
		"type":     tokenType,
		"iat":      now.Unix(),
		"exp":      now.Add(expiry).Unix(),
		"jti":      uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

func (s *authService) parseToken(tokenString, wantType string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrPermissionDenied)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrPermissionDenied)
	}
	if tokenType, _ := claims["type"].(string); tokenType != wantType {
		return nil, fmt.Errorf("wrong token type: %w", domain.ErrPermissionDenied)
	}
	return claims, nil
}
