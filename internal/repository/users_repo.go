package repository

import (
	"context"

	"beidao-data/internal/domain"
)

// UsersRepository 用户Repository接口
type UsersRepository interface {
	// 创建（手机号唯一约束冲突返回 domain.ErrConflict）
	CreateUser(ctx context.Context, user *domain.User) (int64, error)

	// 查询
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*domain.User, error)
	ListUsers(ctx context.Context, search string, page, size int) ([]*domain.User, int, error)
	CountUserDevices(ctx context.Context, userID int64) (int, error)

	// 更新（部分更新，nil 字段不变）
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) error
	UpdateLastLogin(ctx context.Context, id int64) error

	// 删除（事务内清除该用户的设备绑定）
	DeleteUser(ctx context.Context, id int64) error
}

// UserUpdate 用户部分更新
type UserUpdate struct {
	Nickname  *string
	AvatarURL *string
	IsActive  *bool
}
