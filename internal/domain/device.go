package domain

import (
	"database/sql"
	"time"
)

// 设备类型
const (
	DeviceTypeDetector   = "detector"   // 探测器 (ESP32-S3)
	DeviceTypeFeedbacker = "feedbacker" // 反馈器 (ESP32-C3)
)

// IsValidDeviceType 校验设备类型取值
func IsValidDeviceType(t string) bool {
	return t == DeviceTypeDetector || t == DeviceTypeFeedbacker
}

// Device 设备领域模型（对应 devices 表）
type Device struct {
	ID              int64  `db:"id"`
	MACAddress      string `db:"mac_address"` // 17位冒号分隔，全局唯一
	DeviceType      string `db:"device_type"` // detector / feedbacker
	Name            string `db:"name"`
	FirmwareVersion string `db:"firmware_version"`

	// 弱引用：delete 后悬挂引用按不存在处理，不跟进已删除记录
	UserID         sql.NullInt64 `db:"user_id"`          // 绑定用户ID
	PairedDeviceID sql.NullInt64 `db:"paired_device_id"` // 配对设备ID

	IsOnline   bool         `db:"is_online"`
	LastSeenAt sql.NullTime `db:"last_seen_at"` // 仅在转为在线时刷新
	CreatedAt  time.Time    `db:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at"`
}

// ToJSON 转换为JSON格式（用于HTTP响应）
func (d *Device) ToJSON() map[string]any {
	m := map[string]any{
		"id":               d.ID,
		"mac_address":      d.MACAddress,
		"device_type":      d.DeviceType,
		"name":             d.Name,
		"firmware_version": d.FirmwareVersion,
		"is_online":        d.IsOnline,
		"created_at":       d.CreatedAt,
	}
	if d.UserID.Valid {
		m["user_id"] = d.UserID.Int64
	} else {
		m["user_id"] = nil
	}
	if d.PairedDeviceID.Valid {
		m["paired_device_id"] = d.PairedDeviceID.Int64
	} else {
		m["paired_device_id"] = nil
	}
	if d.LastSeenAt.Valid {
		m["last_seen_at"] = d.LastSeenAt.Time
	} else {
		m["last_seen_at"] = nil
	}
	return m
}
