package repository

import (
	"context"

	"beidao-data/internal/domain"
)

// DevicesRepository 设备Repository接口
// 使用强类型领域模型，不使用map[string]any
type DevicesRepository interface {
	// 创建（MAC 唯一约束冲突返回 domain.ErrConflict）
	CreateDevice(ctx context.Context, device *domain.Device) (int64, error)

	// 查询
	GetDevice(ctx context.Context, id int64) (*domain.Device, error)
	GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error)
	ListDevices(ctx context.Context, filters DeviceFilters, page, size int) ([]*domain.Device, int, error)
	ListDevicesByUser(ctx context.Context, userID int64) ([]*domain.Device, error)

	// 更新（部分更新，nil 字段不变）
	UpdateDevice(ctx context.Context, id int64, upd DeviceUpdate) error

	// 在线状态（置为在线时刷新 last_seen_at，置为离线不动）
	SetOnlineStatus(ctx context.Context, id int64, online bool) error

	// 绑定/解绑（name 非空时同时改名）
	BindUser(ctx context.Context, deviceID, userID int64, name string) error
	UnbindUser(ctx context.Context, deviceID int64) error
	ClearUserBindings(ctx context.Context, userID int64) error

	// 配对（事务内先清除双方旧配对的反向引用，再互相指向）
	PairDevices(ctx context.Context, detectorID, feedbackerID int64) error

	// 物理删除（事务内清除旧配对方的反向引用）
	DeleteDevice(ctx context.Context, id int64) error
}

// DeviceFilters 设备查询过滤器
type DeviceFilters struct {
	DeviceType    string // 可选：detector / feedbacker
	UserID        int64  // 可选：绑定用户过滤（0 表示不过滤）
	SearchKeyword string // 可选：MAC 或名称子串（区分大小写）
}

// DeviceUpdate 设备部分更新
type DeviceUpdate struct {
	Name            *string
	FirmwareVersion *string
}
