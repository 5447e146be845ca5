package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"beidao-data/internal/domain"
)

// MemoryPostureLogsRepo DB 未就绪时的内存实现（也用于单元测试）
type MemoryPostureLogsRepo struct {
	mu     sync.RWMutex
	nextID int64
	logs   []*domain.PostureLog
}

func NewMemoryPostureLogsRepo() *MemoryPostureLogsRepo {
	return &MemoryPostureLogsRepo{nextID: 1}
}

func (r *MemoryPostureLogsRepo) InsertBatch(_ context.Context, logs []*domain.PostureLog) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, l := range logs {
		c := *l
		c.ID = r.nextID
		r.nextID++
		c.CreatedAt = now
		r.logs = append(r.logs, &c)
	}
	return len(logs), nil
}

// truncateToDay 截断到自然日（本地时区）
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r *MemoryPostureLogsRepo) ListByUserAndDateRange(_ context.Context, userID int64, startDate, endDate time.Time) ([]*domain.PostureLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := truncateToDay(startDate)
	end := truncateToDay(endDate)

	out := []*domain.PostureLog{}
	for _, l := range r.logs {
		if l.UserID != userID {
			continue
		}
		day := truncateToDay(l.RecordedAt)
		if day.Before(start) || day.After(end) {
			continue
		}
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
