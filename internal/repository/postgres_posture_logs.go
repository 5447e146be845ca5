package repository

import (
	"context"
	"database/sql"
	"time"

	"beidao-data/internal/domain"
)

type PostgresPostureLogsRepo struct {
	db *sql.DB
}

func NewPostgresPostureLogsRepo(db *sql.DB) *PostgresPostureLogsRepo {
	return &PostgresPostureLogsRepo{db: db}
}

func (r *PostgresPostureLogsRepo) InsertBatch(ctx context.Context, logs []*domain.PostureLog) (int, error) {
	if len(logs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posture_logs (device_id, user_id, posture_type, duration, is_correct, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, l := range logs {
		if _, err := stmt.ExecContext(ctx,
			l.DeviceID, l.UserID, l.PostureType, l.Duration, l.IsCorrect, l.RecordedAt); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(logs), nil
}

func (r *PostgresPostureLogsRepo) ListByUserAndDateRange(ctx context.Context, userID int64, startDate, endDate time.Time) ([]*domain.PostureLog, error) {
	q := `
		SELECT id, device_id, user_id, posture_type, duration, is_correct, recorded_at, created_at
		FROM posture_logs
		WHERE user_id = $1
		  AND recorded_at::date >= $2::date
		  AND recorded_at::date <= $3::date
		ORDER BY recorded_at, id`
	rows, err := r.db.QueryContext(ctx, q, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.PostureLog{}
	for rows.Next() {
		var l domain.PostureLog
		if err := rows.Scan(
			&l.ID,
			&l.DeviceID,
			&l.UserID,
			&l.PostureType,
			&l.Duration,
			&l.IsCorrect,
			&l.RecordedAt,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
