package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"beidao-data/internal/domain"
)

// MemoryUsersRepo DB 未就绪时的内存实现（也用于单元测试）
// devices 非 nil 时，DeleteUser 会同步清除设备绑定（对齐 Postgres 事务语义）
type MemoryUsersRepo struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]*domain.User
	devices *MemoryDevicesRepo
}

func NewMemoryUsersRepo(devices *MemoryDevicesRepo) *MemoryUsersRepo {
	return &MemoryUsersRepo{
		nextID:  1,
		users:   map[int64]*domain.User{},
		devices: devices,
	}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (r *MemoryUsersRepo) CreateUser(_ context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Phone == user.Phone {
			return 0, fmt.Errorf("phone %s already registered: %w", user.Phone, domain.ErrConflict)
		}
	}

	id := r.nextID
	r.nextID++
	now := time.Now()
	u := cloneUser(user)
	u.ID = id
	u.IsActive = true
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[id] = u
	return id, nil
}

func (r *MemoryUsersRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (r *MemoryUsersRepo) GetUserByPhone(_ context.Context, phone string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Phone == phone {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", phone, domain.ErrNotFound)
}

func (r *MemoryUsersRepo) ListUsers(_ context.Context, search string, page, size int) ([]*domain.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.User{}
	for _, u := range r.users {
		if search != "" && !strings.Contains(u.Phone, search) && !strings.Contains(u.Nickname, search) {
			continue
		}
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryUsersRepo) CountUserDevices(ctx context.Context, userID int64) (int, error) {
	if r.devices == nil {
		return 0, nil
	}
	devices, err := r.devices.ListDevicesByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(devices), nil
}

func (r *MemoryUsersRepo) UpdateUser(_ context.Context, id int64, upd UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	if upd.Nickname != nil {
		u.Nickname = *upd.Nickname
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = sql.NullString{String: *upd.AvatarURL, Valid: *upd.AvatarURL != ""}
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUsersRepo) UpdateLastLogin(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	u.LastLoginAt = sql.NullTime{Time: time.Now(), Valid: true}
	u.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUsersRepo) DeleteUser(ctx context.Context, id int64) error {
	r.mu.Lock()
	if _, ok := r.users[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	delete(r.users, id)
	r.mu.Unlock()

	if r.devices != nil {
		return r.devices.ClearUserBindings(ctx, id)
	}
	return nil
}
