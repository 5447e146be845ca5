package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"
	"beidao-data/internal/store"

	"go.uber.org/zap"
)

// StatsService 姿态统计聚合服务接口
type StatsService interface {
	// 单日统计
	DailyStats(ctx context.Context, userID int64, date time.Time) (*DailyStats, error)

	// 周统计：weekStart 为空则取本周一；返回 7 天逐日 + 汇总
	WeeklyStats(ctx context.Context, userID int64, weekStart time.Time) (*WeeklyStats, error)
}

// DailyStats 单日聚合结果；正确率按时长计算
type DailyStats struct {
	Date              string         `json:"date"` // YYYY-MM-DD
	TotalCount        int            `json:"total_count"`
	TotalDuration     int            `json:"total_duration"`     // 秒
	CorrectDuration   int            `json:"correct_duration"`   // 秒
	IncorrectDuration int            `json:"incorrect_duration"` // 秒
	CorrectRate       float64        `json:"correct_rate"`       // correct/total 时长比，保留 4 位小数
	Breakdown         map[string]int `json:"breakdown"`          // 姿态类型 -> 累计时长（秒）
}

// WeeklyStats 周聚合结果：逐日 + 时长加权汇总
type WeeklyStats struct {
	WeekStart         string        `json:"week_start"` // 周一 YYYY-MM-DD
	WeekEnd           string        `json:"week_end"`
	Days              []*DailyStats `json:"days"` // 固定 7 条，无数据日补零
	TotalDuration     int           `json:"total_duration"`
	CorrectDuration   int           `json:"correct_duration"`
	IncorrectDuration int           `json:"incorrect_duration"`
	AverageRate       float64       `json:"average_rate"` // 按周内总时长计算，非 7 日均值
}

type statsService struct {
	logsRepo repository.PostureLogsRepository
	cache    store.KV
	logger   *zap.Logger
}

// NewStatsService 创建 StatsService 实例；cache 可用 MemoryKV 兜底
func NewStatsService(logsRepo repository.PostureLogsRepository, cache store.KV, logger *zap.Logger) StatsService {
	return &statsService{
		logsRepo: logsRepo,
		cache:    cache,
		logger:   logger,
	}
}

const dailyCacheTTL = 7 * 24 * time.Hour

func dailyCacheKey(userID int64, date string) string {
	return fmt.Sprintf("posture:daily:%d:%s", userID, date)
}

// round4 保留 4 位小数（四舍五入）
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

// mondayOf 返回 t 所在周的周一（零点，保留时区）
func mondayOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return day.AddDate(0, 0, -offset)
}

func (s *statsService) DailyStats(ctx context.Context, userID int64, date time.Time) (*DailyStats, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrValidation)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dateStr := day.Format("2006-01-02")

	// 已完结的日子走缓存（当天数据仍在变化，不缓存）
	today := time.Now().In(day.Location())
	todayStart := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	cacheable := day.Before(todayStart)

	if cacheable {
		if raw, err := s.cache.Get(ctx, dailyCacheKey(userID, dateStr)); err == nil {
			var cached DailyStats
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("daily stats cache read failed", zap.Error(err))
		}
	}

	logs, err := s.logsRepo.ListByUserAndDateRange(ctx, userID, day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query posture logs: %w", err)
	}
	stats := aggregateDay(dateStr, logs)

	if cacheable {
		if raw, err := json.Marshal(stats); err == nil {
			if setErr := s.cache.Set(ctx, dailyCacheKey(userID, dateStr), string(raw), dailyCacheTTL); setErr != nil {
				s.logger.Warn("daily stats cache write failed", zap.Error(setErr))
			}
		}
	}
	return stats, nil
}

func (s *statsService) WeeklyStats(ctx context.Context, userID int64, weekStart time.Time) (*WeeklyStats, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user_id is required: %w", domain.ErrValidation)
	}
	// 未指定起始日时取本周一；指定了则按给定日期起连续 7 天
	if weekStart.IsZero() {
		weekStart = mondayOf(time.Now())
	} else {
		weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	logs, err := s.logsRepo.ListByUserAndDateRange(ctx, userID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query posture logs: %w", err)
	}

	// 按自然日分桶
	byDay := make(map[string][]*domain.PostureLog)
	for _, l := range logs {
		d := l.RecordedAt.In(weekStart.Location()).Format("2006-01-02")
		byDay[d] = append(byDay[d], l)
	}

	result := &WeeklyStats{
		WeekStart: weekStart.Format("2006-01-02"),
		WeekEnd:   weekEnd.Format("2006-01-02"),
		Days:      make([]*DailyStats, 0, 7),
	}
	for i := 0; i < 7; i++ {
		dateStr := weekStart.AddDate(0, 0, i).Format("2006-01-02")
		day := aggregateDay(dateStr, byDay[dateStr])
		result.Days = append(result.Days, day)
		result.TotalDuration += day.TotalDuration
		result.CorrectDuration += day.CorrectDuration
		result.IncorrectDuration += day.IncorrectDuration
	}

	// 全周时长加权，不是 7 日比率的平均
	if result.TotalDuration > 0 {
		result.AverageRate = round4(float64(result.CorrectDuration) / float64(result.TotalDuration))
	}
	return result, nil
}

// aggregateDay 聚合单日日志；logs 为空时返回全零结果
func aggregateDay(dateStr string, logs []*domain.PostureLog) *DailyStats {
	stats := &DailyStats{
		Date:      dateStr,
		Breakdown: map[string]int{},
	}
	for _, l := range logs {
		stats.TotalCount++
		stats.TotalDuration += l.Duration
		stats.Breakdown[l.PostureType] += l.Duration
		if l.IsCorrect {
			stats.CorrectDuration += l.Duration
		} else {
			stats.IncorrectDuration += l.Duration
		}
	}
	if stats.TotalDuration > 0 {
		stats.CorrectRate = round4(float64(stats.CorrectDuration) / float64(stats.TotalDuration))
	}
	return stats
}
