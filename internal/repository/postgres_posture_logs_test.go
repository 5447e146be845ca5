package repository

import (
	"context"
	"testing"
	"time"

	"beidao-data/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestPostgresPostureLogsRepo_InsertBatch_SingleTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPostureLogsRepo(db)

	recorded := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)
	logs := []*domain.PostureLog{
		{DeviceID: 1, UserID: 7, PostureType: "hunched", Duration: 100, IsCorrect: false, RecordedAt: recorded},
		{DeviceID: 1, UserID: 7, PostureType: "upright", Duration: 50, IsCorrect: true, RecordedAt: recorded},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO posture_logs`)
	prep.ExpectExec().
		WithArgs(int64(1), int64(7), "hunched", 100, false, recorded).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs(int64(1), int64(7), "upright", 50, true, recorded).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := repo.InsertBatch(context.Background(), logs)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPostureLogsRepo_InsertBatch_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPostureLogsRepo(db)

	n, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPostureLogsRepo_ListByUserAndDateRange(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPostureLogsRepo(db)

	start := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	recorded := start.Add(9 * time.Hour)
	created := recorded.Add(time.Minute)

	mock.ExpectQuery(`SELECT id, device_id, user_id`).
		WithArgs(int64(7), start, end).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "device_id", "user_id", "posture_type", "duration", "is_correct", "recorded_at", "created_at",
		}).AddRow(int64(1), int64(3), int64(7), "upright", 120, true, recorded, created))

	logs, err := repo.ListByUserAndDateRange(context.Background(), 7, start, end)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, "upright", logs[0].PostureType)
	require.Equal(t, 120, logs[0].Duration)
	require.NoError(t, mock.ExpectationsWereMet())
}
