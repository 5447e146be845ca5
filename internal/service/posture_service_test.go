package service

import (
	"context"
	"testing"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPostureService(t *testing.T) (PostureService, *repository.MemoryPostureLogsRepo) {
	t.Helper()
	repo := repository.NewMemoryPostureLogsRepo()
	return NewPostureService(repo, zap.NewNop()), repo
}

func TestAppendBatch(t *testing.T) {
	svc, _ := newPostureService(t)
	now := time.Now()

	n, err := svc.AppendBatch(context.Background(), 1, []PostureEventInput{
		{DeviceID: 10, PostureType: "upright", Duration: 300, IsCorrect: true, RecordedAt: now},
		{DeviceID: 10, PostureType: "hunched", Duration: 120, IsCorrect: false, RecordedAt: now.Add(5 * time.Minute)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestAppendBatch_RejectsWholeBatch(t *testing.T) {
	svc, repo := newPostureService(t)
	now := time.Now()

	// 第二条 duration 为负，整批拒绝
	_, err := svc.AppendBatch(context.Background(), 1, []PostureEventInput{
		{DeviceID: 10, PostureType: "upright", Duration: 300, IsCorrect: true, RecordedAt: now},
		{DeviceID: 10, PostureType: "hunched", Duration: -1, IsCorrect: false, RecordedAt: now},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Contains(t, err.Error(), "event 1")

	logs, err := repo.ListByUserAndDateRange(context.Background(), 1, now, now)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestAppendBatch_FieldValidation(t *testing.T) {
	svc, _ := newPostureService(t)
	now := time.Now()

	cases := []struct {
		name  string
		event PostureEventInput
	}{
		{"missing device_id", PostureEventInput{PostureType: "upright", Duration: 1, RecordedAt: now}},
		{"missing posture_type", PostureEventInput{DeviceID: 10, Duration: 1, RecordedAt: now}},
		{"zero recorded_at", PostureEventInput{DeviceID: 10, PostureType: "upright", Duration: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AppendBatch(context.Background(), 1, []PostureEventInput{tc.event})
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestAppendBatch_Empty(t *testing.T) {
	svc, _ := newPostureService(t)

	_, err := svc.AppendBatch(context.Background(), 1, nil)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestQueryRange_InclusiveCalendarDays(t *testing.T) {
	svc, _ := newPostureService(t)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 2, 23, 59, 0, 0, time.Local)
	day2 := time.Date(2026, 3, 3, 0, 1, 0, 0, time.Local)
	day3 := time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)

	_, err := svc.AppendBatch(ctx, 1, []PostureEventInput{
		{DeviceID: 10, PostureType: "upright", Duration: 60, IsCorrect: true, RecordedAt: day1},
		{DeviceID: 10, PostureType: "upright", Duration: 60, IsCorrect: true, RecordedAt: day2},
		{DeviceID: 10, PostureType: "upright", Duration: 60, IsCorrect: true, RecordedAt: day3},
	})
	require.NoError(t, err)

	// [3-2, 3-3] 闭区间按自然日，命中前两条
	logs, err := svc.QueryRange(ctx, 1,
		time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local),
		time.Date(2026, 3, 3, 10, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// 其他用户看不到
	logs, err = svc.QueryRange(ctx, 2, day1, day3)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestQueryRange_InvertedRange(t *testing.T) {
	svc, _ := newPostureService(t)

	_, err := svc.QueryRange(context.Background(), 1,
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local))
	require.ErrorIs(t, err, domain.ErrValidation)
}
