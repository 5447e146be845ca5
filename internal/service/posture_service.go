package service

import (
	"context"
	"fmt"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"go.uber.org/zap"
)

// PostureService 姿态日志账本服务接口（仅追加）
type PostureService interface {
	// 批量写入：任一条目非法则整批拒绝（domain.ErrValidation），
	// 不校验设备/用户存在性（上报者即已认证的事件所有者）
	AppendBatch(ctx context.Context, userID int64, events []PostureEventInput) (int, error)

	// 按自然日闭区间查询
	QueryRange(ctx context.Context, userID int64, startDate, endDate time.Time) ([]*domain.PostureLog, error)
}

// PostureEventInput 单条姿态事件上报
type PostureEventInput struct {
	DeviceID    int64     `json:"device_id"`
	PostureType string    `json:"posture_type"`
	Duration    int       `json:"duration"` // 秒，>= 0
	IsCorrect   bool      `json:"is_correct"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type postureService struct {
	logsRepo repository.PostureLogsRepository
	logger   *zap.Logger
}

// NewPostureService 创建 PostureService 实例
func NewPostureService(logsRepo repository.PostureLogsRepository, logger *zap.Logger) PostureService {
	return &postureService{
		logsRepo: logsRepo,
		logger:   logger,
	}
}

func (s *postureService) AppendBatch(ctx context.Context, userID int64, events []PostureEventInput) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("user_id is required: %w", domain.ErrValidation)
	}
	if len(events) == 0 {
		return 0, fmt.Errorf("empty batch: %w", domain.ErrValidation)
	}

	// 1. 整批结构校验（任一条非法即全部拒绝）
	logs := make([]*domain.PostureLog, 0, len(events))
	for i, e := range events {
		if e.DeviceID <= 0 {
			return 0, fmt.Errorf("event %d: device_id is required: %w", i, domain.ErrValidation)
		}
		if e.PostureType == "" {
			return 0, fmt.Errorf("event %d: posture_type is required: %w", i, domain.ErrValidation)
		}
		if e.Duration < 0 {
			return 0, fmt.Errorf("event %d: duration must be >= 0: %w", i, domain.ErrValidation)
		}
		if e.RecordedAt.IsZero() {
			return 0, fmt.Errorf("event %d: recorded_at is required: %w", i, domain.ErrValidation)
		}
		logs = append(logs, &domain.PostureLog{
			DeviceID:    e.DeviceID,
			UserID:      userID,
			PostureType: e.PostureType,
			Duration:    e.Duration,
			IsCorrect:   e.IsCorrect,
			RecordedAt:  e.RecordedAt,
		})
	}

	// 2. 单事务写入
	n, err := s.logsRepo.InsertBatch(ctx, logs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert posture logs: %w", err)
	}

	s.logger.Info("posture logs appended",
		zap.Int64("user_id", userID),
		zap.Int("count", n),
	)
	return n, nil
}

func (s *postureService) QueryRange(ctx context.Context, userID int64, startDate, endDate time.Time) ([]*domain.PostureLog, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("end_date before start_date: %w", domain.ErrValidation)
	}
	return s.logsRepo.ListByUserAndDateRange(ctx, userID, startDate, endDate)
}
