package service

import (
	"context"
	"fmt"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"go.uber.org/zap"
)

// UserService 用户管理服务接口
type UserService interface {
	// 个人资料（含设备数）
	GetProfile(ctx context.Context, userID int64) (*UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*domain.User, error)

	// 管理端
	ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) (*domain.User, error)
	DeleteUser(ctx context.Context, operatorID, targetID int64) error
}

// UserProfile 资料响应：用户 + 绑定设备数
type UserProfile struct {
	User        *domain.User `json:"user"`
	DeviceCount int          `json:"device_count"`
}

// UpdateProfileRequest 可更新字段，nil 表示不变
type UpdateProfileRequest struct {
	Nickname  *string `json:"nickname"`
	AvatarURL *string `json:"avatar_url"`
}

// ListUsersRequest 管理端用户列表查询
type ListUsersRequest struct {
	SearchKeyword string `json:"search"` // 手机号/昵称模糊匹配
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
}

// ListUsersResponse 分页结果
type ListUsersResponse struct {
	Items    []*domain.User `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type userService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(usersRepo repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{
		usersRepo: usersRepo,
		logger:    logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.usersRepo.CountUserDevices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count user devices: %w", err)
	}
	return &UserProfile{User: user, DeviceCount: count}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*domain.User, error) {
	update := repository.UserUpdate{
		Nickname:  req.Nickname,
		AvatarURL: req.AvatarURL,
	}
	if err := s.usersRepo.UpdateUser(ctx, userID, update); err != nil {
		return nil, err
	}
	return s.usersRepo.GetUser(ctx, userID)
}

func (s *userService) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := s.usersRepo.ListUsers(ctx, req.SearchKeyword, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &ListUsersResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *userService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.usersRepo.GetUser(ctx, id)
}

func (s *userService) SetUserActive(ctx context.Context, id int64, active bool) (*domain.User, error) {
	update := repository.UserUpdate{IsActive: &active}
	if err := s.usersRepo.UpdateUser(ctx, id, update); err != nil {
		return nil, err
	}
	s.logger.Info("user active status changed",
		zap.Int64("user_id", id),
		zap.Bool("is_active", active),
	)
	return s.usersRepo.GetUser(ctx, id)
}

func (s *userService) DeleteUser(ctx context.Context, operatorID, targetID int64) error {
	// 禁止删除自己，避免管理员误操作锁死
	if operatorID == targetID {
		return fmt.Errorf("cannot delete self: %w", domain.ErrPermissionDenied)
	}
	if err := s.usersRepo.DeleteUser(ctx, targetID); err != nil {
		return err
	}
	s.logger.Info("user deleted",
		zap.Int64("operator_id", operatorID),
		zap.Int64("user_id", targetID),
	)
	return nil
}
