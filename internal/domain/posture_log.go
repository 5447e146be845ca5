package domain

import "time"

// PostureLog 姿态日志（对应 posture_logs 表）
// 入库后不可变，不提供更新/删除
type PostureLog struct {
	ID          int64     `db:"id"`
	DeviceID    int64     `db:"device_id"` // 弱引用，不做存在性校验
	UserID      int64     `db:"user_id"`
	PostureType string    `db:"posture_type"` // 姿态类型标签，自由文本
	Duration    int       `db:"duration"`     // 持续时长(秒)，>= 0
	IsCorrect   bool      `db:"is_correct"`
	RecordedAt  time.Time `db:"recorded_at"` // 姿态发生时间（客户端上报）
	CreatedAt   time.Time `db:"created_at"`  // 入库时间
}

// ToJSON 转换为JSON格式
func (p *PostureLog) ToJSON() map[string]any {
	return map[string]any{
		"id":           p.ID,
		"device_id":    p.DeviceID,
		"user_id":      p.UserID,
		"posture_type": p.PostureType,
		"duration":     p.Duration,
		"is_correct":   p.IsCorrect,
		"recorded_at":  p.RecordedAt,
		"created_at":   p.CreatedAt,
	}
}
