package service

import (
	"context"
	"errors"
	"fmt"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"go.uber.org/zap"
)

// BindingService 设备与用户的绑定关系服务接口
type BindingService interface {
	// 绑定到用户：
	// - MAC 不存在时先注册再绑定
	// - 已绑定当前用户时幂等成功
	// - 已绑定其他用户时返回 domain.ErrConflict
	BindDevice(ctx context.Context, req BindDeviceRequest) (*domain.Device, error)

	// 解绑（非所有者返回 domain.ErrPermissionDenied；不动配对关系）
	UnbindDevice(ctx context.Context, deviceID, userID int64) error

	// 用户绑定的设备列表（创建时间倒序）
	ListUserDevices(ctx context.Context, userID int64) ([]*domain.Device, error)
}

type bindingService struct {
	devicesRepo repository.DevicesRepository
	logger      *zap.Logger
}

// NewBindingService 创建 BindingService 实例
func NewBindingService(devicesRepo repository.DevicesRepository, logger *zap.Logger) BindingService {
	return &bindingService{
		devicesRepo: devicesRepo,
		logger:      logger,
	}
}

// BindDeviceRequest 绑定设备请求
type BindDeviceRequest struct {
	UserID          int64
	MACAddress      string
	DeviceType      string // MAC 未注册时用于创建
	Name            string // 可选：非空时同时改名
	FirmwareVersion string // 可选：MAC 未注册时用于创建
}

func (s *bindingService) BindDevice(ctx context.Context, req BindDeviceRequest) (*domain.Device, error) {
	device, err := s.devicesRepo.GetDeviceByMAC(ctx, req.MACAddress)
	if errors.Is(err, domain.ErrNotFound) {
		// 首次绑定未知 MAC：先注册
		if err := validateDeviceIdentity(req.MACAddress, req.DeviceType); err != nil {
			return nil, err
		}
		fw := req.FirmwareVersion
		if fw == "" {
			fw = DefaultFirmwareVersion
		}
		id, err := s.devicesRepo.CreateDevice(ctx, &domain.Device{
			MACAddress:      req.MACAddress,
			DeviceType:      req.DeviceType,
			Name:            req.Name,
			FirmwareVersion: fw,
		})
		if err != nil {
			return nil, err
		}
		device, err = s.devicesRepo.GetDevice(ctx, id)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if device.UserID.Valid {
		if device.UserID.Int64 == req.UserID {
			// 已绑定当前用户：幂等成功
			return device, nil
		}
		return nil, fmt.Errorf("device %s already bound to another user: %w",
			device.MACAddress, domain.ErrConflict)
	}

	if err := s.devicesRepo.BindUser(ctx, device.ID, req.UserID, req.Name); err != nil {
		return nil, err
	}
	s.logger.Info("device bound",
		zap.Int64("device_id", device.ID),
		zap.Int64("user_id", req.UserID),
	)
	return s.devicesRepo.GetDevice(ctx, device.ID)
}

func (s *bindingService) UnbindDevice(ctx context.Context, deviceID, userID int64) error {
	device, err := s.devicesRepo.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if !device.UserID.Valid || device.UserID.Int64 != userID {
		return fmt.Errorf("device %d not owned by user %d: %w",
			deviceID, userID, domain.ErrPermissionDenied)
	}
	if err := s.devicesRepo.UnbindUser(ctx, deviceID); err != nil {
		return err
	}
	s.logger.Info("device unbound",
		zap.Int64("device_id", deviceID),
		zap.Int64("user_id", userID),
	)
	return nil
}

func (s *bindingService) ListUserDevices(ctx context.Context, userID int64) ([]*domain.Device, error) {
	return s.devicesRepo.ListDevicesByUser(ctx, userID)
}
