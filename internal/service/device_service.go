package service

import (
	"context"
	"fmt"
	"regexp"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"go.uber.org/zap"
)

// macPattern 17位冒号分隔十六进制（规范形式）
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// DefaultFirmwareVersion 注册时未提供固件版本的默认值
const DefaultFirmwareVersion = "1.0.0"

// DeviceService 设备注册与状态管理服务接口
type DeviceService interface {
	// 注册（MAC 已存在返回 domain.ErrConflict）
	RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*domain.Device, error)

	// 查询
	GetDevice(ctx context.Context, id int64) (*domain.Device, error)
	GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error)
	ListDevices(ctx context.Context, req ListDevicesRequest) (*ListDevicesResponse, error)

	// 更新
	UpdateDevice(ctx context.Context, req UpdateDeviceRequest) (*domain.Device, error)
	SetOnline(ctx context.Context, id int64, online bool) (*domain.Device, error)

	// 删除（物理删除；配对方的反向引用在同事务清除）
	DeleteDevice(ctx context.Context, id int64) error
}

type deviceService struct {
	devicesRepo repository.DevicesRepository
	logger      *zap.Logger
}

// NewDeviceService 创建 DeviceService 实例
func NewDeviceService(devicesRepo repository.DevicesRepository, logger *zap.Logger) DeviceService {
	return &deviceService{
		devicesRepo: devicesRepo,
		logger:      logger,
	}
}

// RegisterDeviceRequest 注册设备请求
type RegisterDeviceRequest struct {
	MACAddress      string
	DeviceType      string // detector / feedbacker
	Name            string // 可选
	FirmwareVersion string // 可选，默认 1.0.0
}

// ListDevicesRequest 查询设备列表请求
type ListDevicesRequest struct {
	DeviceType string // 可选
	UserID     int64  // 可选：绑定用户过滤
	Search     string // 可选：MAC 或名称子串
	Page       int    // 默认 1
	Size       int    // 默认 20
}

// ListDevicesResponse 查询设备列表响应
type ListDevicesResponse struct {
	Items []*domain.Device
	Total int
}

// UpdateDeviceRequest 更新设备请求（nil 字段不变）
type UpdateDeviceRequest struct {
	ID              int64
	Name            *string
	FirmwareVersion *string
}

// validateDeviceIdentity 校验 MAC 与设备类型
func validateDeviceIdentity(mac, deviceType string) error {
	if !macPattern.MatchString(mac) {
		return fmt.Errorf("invalid mac_address %q: %w", mac, domain.ErrValidation)
	}
	if !domain.IsValidDeviceType(deviceType) {
		return fmt.Errorf("invalid device_type %q: %w", deviceType, domain.ErrValidation)
	}
	return nil
}

func (s *deviceService) RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*domain.Device, error) {
	// 1. 参数校验
	if err := validateDeviceIdentity(req.MACAddress, req.DeviceType); err != nil {
		return nil, err
	}
	if req.FirmwareVersion == "" {
		req.FirmwareVersion = DefaultFirmwareVersion
	}

	// 2. 创建（MAC 唯一约束由存储层保证）
	id, err := s.devicesRepo.CreateDevice(ctx, &domain.Device{
		MACAddress:      req.MACAddress,
		DeviceType:      req.DeviceType,
		Name:            req.Name,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("device registered",
		zap.Int64("device_id", id),
		zap.String("mac_address", req.MACAddress),
		zap.String("device_type", req.DeviceType),
	)
	return s.devicesRepo.GetDevice(ctx, id)
}

func (s *deviceService) GetDevice(ctx context.Context, id int64) (*domain.Device, error) {
	return s.devicesRepo.GetDevice(ctx, id)
}

func (s *deviceService) GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error) {
	return s.devicesRepo.GetDeviceByMAC(ctx, mac)
}

func (s *deviceService) ListDevices(ctx context.Context, req ListDevicesRequest) (*ListDevicesResponse, error) {
	if req.DeviceType != "" && !domain.IsValidDeviceType(req.DeviceType) {
		return nil, fmt.Errorf("invalid device_type %q: %w", req.DeviceType, domain.ErrValidation)
	}

	items, total, err := s.devicesRepo.ListDevices(ctx, repository.DeviceFilters{
		DeviceType:    req.DeviceType,
		UserID:        req.UserID,
		SearchKeyword: req.Search,
	}, req.Page, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return &ListDevicesResponse{Items: items, Total: total}, nil
}

func (s *deviceService) UpdateDevice(ctx context.Context, req UpdateDeviceRequest) (*domain.Device, error) {
	if err := s.devicesRepo.UpdateDevice(ctx, req.ID, repository.DeviceUpdate{
		Name:            req.Name,
		FirmwareVersion: req.FirmwareVersion,
	}); err != nil {
		return nil, err
	}
	return s.devicesRepo.GetDevice(ctx, req.ID)
}

func (s *deviceService) SetOnline(ctx context.Context, id int64, online bool) (*domain.Device, error) {
	if err := s.devicesRepo.SetOnlineStatus(ctx, id, online); err != nil {
		return nil, err
	}
	s.logger.Debug("device online status updated",
		zap.Int64("device_id", id),
		zap.Bool("online", online),
	)
	return s.devicesRepo.GetDevice(ctx, id)
}

func (s *deviceService) DeleteDevice(ctx context.Context, id int64) error {
	if err := s.devicesRepo.DeleteDevice(ctx, id); err != nil {
		return err
	}
	s.logger.Info("device deleted", zap.Int64("device_id", id))
	return nil
}
