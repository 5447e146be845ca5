package domain

import (
	"database/sql"
	"time"
)

// User 用户领域模型（对应 users 表）
type User struct {
	ID           int64          `db:"id"`
	Phone        string         `db:"phone"` // 手机号，唯一
	PasswordHash string         `db:"password_hash"`
	Nickname     string         `db:"nickname"`
	AvatarURL    sql.NullString `db:"avatar_url"`
	IsAdmin      bool           `db:"is_admin"`
	IsActive     bool           `db:"is_active"` // 停用置 false，不删除
	LastLoginAt  sql.NullTime   `db:"last_login_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// ToJSON 转换为JSON格式（不含 password_hash）
func (u *User) ToJSON() map[string]any {
	m := map[string]any{
		"id":         u.ID,
		"phone":      u.Phone,
		"nickname":   u.Nickname,
		"is_admin":   u.IsAdmin,
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt,
	}
	if u.AvatarURL.Valid {
		m["avatar_url"] = u.AvatarURL.String
	} else {
		m["avatar_url"] = nil
	}
	if u.LastLoginAt.Valid {
		m["last_login_at"] = u.LastLoginAt.Time
	} else {
		m["last_login_at"] = nil
	}
	return m
}
