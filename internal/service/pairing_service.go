package service

import (
	"context"
	"fmt"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"go.uber.org/zap"
)

// PairingService 探测器与反馈器的配对服务接口
type PairingService interface {
	// 配对：双向互指，事务内完成；双方旧配对的反向引用先被清除。
	// 任一设备不存在返回 domain.ErrNotFound；类型不符返回 domain.ErrValidation（指明哪一侧）
	PairDevices(ctx context.Context, detectorID, feedbackerID int64) (*domain.Device, *domain.Device, error)
}

type pairingService struct {
	devicesRepo repository.DevicesRepository
	logger      *zap.Logger
}

// NewPairingService 创建 PairingService 实例
func NewPairingService(devicesRepo repository.DevicesRepository, logger *zap.Logger) PairingService {
	return &pairingService{
		devicesRepo: devicesRepo,
		logger:      logger,
	}
}

func (s *pairingService) PairDevices(ctx context.Context, detectorID, feedbackerID int64) (*domain.Device, *domain.Device, error) {
	// 1. 解析双方
	detector, err := s.devicesRepo.GetDevice(ctx, detectorID)
	if err != nil {
		return nil, nil, err
	}
	feedbacker, err := s.devicesRepo.GetDevice(ctx, feedbackerID)
	if err != nil {
		return nil, nil, err
	}

	// 2. 类型校验（指明出错的一侧）
	if detector.DeviceType != domain.DeviceTypeDetector {
		return nil, nil, fmt.Errorf("device %d must be a detector, got %s: %w",
			detectorID, detector.DeviceType, domain.ErrValidation)
	}
	if feedbacker.DeviceType != domain.DeviceTypeFeedbacker {
		return nil, nil, fmt.Errorf("device %d must be a feedbacker, got %s: %w",
			feedbackerID, feedbacker.DeviceType, domain.ErrValidation)
	}

	// 3. 事务内双向配对
	if err := s.devicesRepo.PairDevices(ctx, detectorID, feedbackerID); err != nil {
		return nil, nil, err
	}

	s.logger.Info("devices paired",
		zap.Int64("detector_id", detectorID),
		zap.Int64("feedbacker_id", feedbackerID),
	)

	detector, err = s.devicesRepo.GetDevice(ctx, detectorID)
	if err != nil {
		return nil, nil, err
	}
	feedbacker, err = s.devicesRepo.GetDevice(ctx, feedbackerID)
	if err != nil {
		return nil, nil, err
	}
	return detector, feedbacker, nil
}
