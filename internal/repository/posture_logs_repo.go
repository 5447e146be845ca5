package repository

import (
	"context"
	"time"

	"beidao-data/internal/domain"
)

// PostureLogsRepository 姿态日志Repository接口
// 仅追加：不提供更新/删除
type PostureLogsRepository interface {
	// 批量写入（单事务，全部成功或全部回滚）
	InsertBatch(ctx context.Context, logs []*domain.PostureLog) (int, error)

	// 按自然日（recorded_at 截断到日）闭区间查询，recorded_at 升序
	ListByUserAndDateRange(ctx context.Context, userID int64, startDate, endDate time.Time) ([]*domain.PostureLog, error)
}
