package service

import (
	"context"
	"testing"
	"time"

	"beidao-data/internal/domain"
	"beidao-data/internal/repository"
	"beidao-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStatsService(t *testing.T) (StatsService, *repository.MemoryPostureLogsRepo) {
	t.Helper()
	repo := repository.NewMemoryPostureLogsRepo()
	return NewStatsService(repo, store.NewMemoryKV(), zap.NewNop()), repo
}

func seedLogs(t *testing.T, repo *repository.MemoryPostureLogsRepo, userID int64, at time.Time, correct, incorrect, duration int) {
	t.Helper()
	logs := make([]*domain.PostureLog, 0, correct+incorrect)
	for i := 0; i < correct; i++ {
		logs = append(logs, &domain.PostureLog{
			DeviceID: 10, UserID: userID, PostureType: "upright",
			Duration: duration, IsCorrect: true, RecordedAt: at,
		})
	}
	for i := 0; i < incorrect; i++ {
		logs = append(logs, &domain.PostureLog{
			DeviceID: 10, UserID: userID, PostureType: "hunched",
			Duration: duration, IsCorrect: false, RecordedAt: at,
		})
	}
	_, err := repo.InsertBatch(context.Background(), logs)
	require.NoError(t, err)
}

func TestDailyStats(t *testing.T) {
	svc, repo := newStatsService(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	// 正确 100 秒 + 错误 50 秒，正确率 0.6667
	_, err := repo.InsertBatch(context.Background(), []*domain.PostureLog{
		{DeviceID: 10, UserID: 1, PostureType: "upright", Duration: 100, IsCorrect: true, RecordedAt: day},
		{DeviceID: 10, UserID: 1, PostureType: "hunched", Duration: 50, RecordedAt: day},
	})
	require.NoError(t, err)

	stats, err := svc.DailyStats(context.Background(), 1, day)
	require.NoError(t, err)
	require.Equal(t, "2026-03-02", stats.Date)
	require.Equal(t, 2, stats.TotalCount)
	require.Equal(t, 150, stats.TotalDuration)
	require.Equal(t, 100, stats.CorrectDuration)
	require.Equal(t, 50, stats.IncorrectDuration)
	require.InDelta(t, 0.6667, stats.CorrectRate, 1e-9)
}

func TestDailyStats_Breakdown(t *testing.T) {
	svc, repo := newStatsService(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	_, err := repo.InsertBatch(context.Background(), []*domain.PostureLog{
		{DeviceID: 10, UserID: 1, PostureType: "upright", Duration: 300, IsCorrect: true, RecordedAt: day},
		{DeviceID: 10, UserID: 1, PostureType: "upright", Duration: 200, IsCorrect: true, RecordedAt: day},
		{DeviceID: 10, UserID: 1, PostureType: "hunched", Duration: 120, RecordedAt: day},
		{DeviceID: 10, UserID: 1, PostureType: "leaning_left", Duration: 80, RecordedAt: day},
	})
	require.NoError(t, err)

	stats, err := svc.DailyStats(context.Background(), 1, day)
	require.NoError(t, err)
	require.Equal(t, map[string]int{
		"upright":      500,
		"hunched":      120,
		"leaning_left": 80,
	}, stats.Breakdown)
}

func TestDailyStats_EmptyDay(t *testing.T) {
	svc, _ := newStatsService(t)

	stats, err := svc.DailyStats(context.Background(), 1, time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Equal(t, 0, stats.TotalCount)
	require.Equal(t, 0, stats.TotalDuration)
	require.Equal(t, float64(0), stats.CorrectRate)
	require.Empty(t, stats.Breakdown)
}

func TestDailyStats_RateIsDurationWeighted(t *testing.T) {
	svc, repo := newStatsService(t)
	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

	// 条数上错误占多数，但时长上正确占 900/1020
	_, err := repo.InsertBatch(context.Background(), []*domain.PostureLog{
		{DeviceID: 10, UserID: 1, PostureType: "hunched", Duration: 40, RecordedAt: day},
		{DeviceID: 10, UserID: 1, PostureType: "hunched", Duration: 40, RecordedAt: day},
		{DeviceID: 10, UserID: 1, PostureType: "hunched", Duration: 40, RecordedAt: day},
		{DeviceID: 10, UserID: 1, PostureType: "upright", Duration: 900, IsCorrect: true, RecordedAt: day},
	})
	require.NoError(t, err)

	stats, err := svc.DailyStats(context.Background(), 1, day)
	require.NoError(t, err)
	require.InDelta(t, round4(900.0/1020.0), stats.CorrectRate, 1e-9)
}

func TestDailyStats_CachesCompletedDays(t *testing.T) {
	svc, repo := newStatsService(t)
	day := time.Now().AddDate(0, 0, -3)

	seedLogs(t, repo, 1, day, 10, 0, 60)

	first, err := svc.DailyStats(context.Background(), 1, day)
	require.NoError(t, err)
	require.Equal(t, 10, first.TotalCount)

	// 历史日结果已缓存:之后的写入不再影响读数
	seedLogs(t, repo, 1, day, 5, 0, 60)
	second, err := svc.DailyStats(context.Background(), 1, day)
	require.NoError(t, err)
	require.Equal(t, 10, second.TotalCount)
}

func TestDailyStats_TodayNotCached(t *testing.T) {
	svc, repo := newStatsService(t)
	now := time.Now()

	seedLogs(t, repo, 1, now, 10, 0, 60)
	first, err := svc.DailyStats(context.Background(), 1, now)
	require.NoError(t, err)
	require.Equal(t, 10, first.TotalCount)

	seedLogs(t, repo, 1, now, 5, 0, 60)
	second, err := svc.DailyStats(context.Background(), 1, now)
	require.NoError(t, err)
	require.Equal(t, 15, second.TotalCount)
}

func TestWeeklyStats(t *testing.T) {
	svc, repo := newStatsService(t)
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local) // 周一

	seedLogs(t, repo, 1, monday.Add(9*time.Hour), 8, 2, 60)                  // 周一 rate 0.8
	seedLogs(t, repo, 1, monday.AddDate(0, 0, 2).Add(9*time.Hour), 3, 7, 60) // 周三 rate 0.3

	weekly, err := svc.WeeklyStats(context.Background(), 1, monday)
	require.NoError(t, err)
	require.Equal(t, "2026-03-02", weekly.WeekStart)
	require.Equal(t, "2026-03-08", weekly.WeekEnd)
	require.Len(t, weekly.Days, 7)

	// 无数据日补零
	require.Equal(t, 0, weekly.Days[1].TotalCount)
	require.Equal(t, 8*60, weekly.Days[0].CorrectDuration)
	require.Equal(t, 7*60, weekly.Days[2].IncorrectDuration)

	// 周汇总与逐日一致
	require.Equal(t, 20*60, weekly.TotalDuration)
	require.Equal(t, 11*60, weekly.CorrectDuration)
	require.Equal(t, 9*60, weekly.IncorrectDuration)
	// 两天总时长相同，时长加权即 (0.8+0.3)/2
	require.InDelta(t, 0.55, weekly.AverageRate, 1e-9)
}

func TestWeeklyStats_AverageIsDurationWeighted(t *testing.T) {
	svc, repo := newStatsService(t)
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	// 周一全对但仅 60 秒；周五全错 540 秒。7 日均值是 0.5，时长加权是 0.1
	seedLogs(t, repo, 1, monday.Add(8*time.Hour), 1, 0, 60)
	seedLogs(t, repo, 1, monday.AddDate(0, 0, 4).Add(8*time.Hour), 0, 1, 540)

	weekly, err := svc.WeeklyStats(context.Background(), 1, monday)
	require.NoError(t, err)
	require.InDelta(t, 0.1, weekly.AverageRate, 1e-9)
}

func TestWeeklyStats_MatchesDailySum(t *testing.T) {
	svc, repo := newStatsService(t)
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)

	seedLogs(t, repo, 1, monday.Add(8*time.Hour), 5, 1, 60)
	seedLogs(t, repo, 1, monday.AddDate(0, 0, 4).Add(8*time.Hour), 2, 4, 30)

	weekly, err := svc.WeeklyStats(context.Background(), 1, monday)
	require.NoError(t, err)

	var correct, duration int
	for i := 0; i < 7; i++ {
		day, err := svc.DailyStats(context.Background(), 1, monday.AddDate(0, 0, i))
		require.NoError(t, err)
		correct += day.CorrectDuration
		duration += day.TotalDuration
	}
	require.Equal(t, correct, weekly.CorrectDuration)
	require.Equal(t, duration, weekly.TotalDuration)
}

func TestWeeklyStats_HonorsSuppliedStartDate(t *testing.T) {
	svc, repo := newStatsService(t)

	// 传周四，窗口为周四起连续 7 天，不归一化到周一
	thursday := time.Date(2026, 3, 5, 15, 0, 0, 0, time.Local)
	seedLogs(t, repo, 1, thursday, 2, 0, 60)                   // 窗口首日
	seedLogs(t, repo, 1, thursday.AddDate(0, 0, -3), 9, 0, 60) // 周一，窗口之外

	weekly, err := svc.WeeklyStats(context.Background(), 1, thursday)
	require.NoError(t, err)
	require.Equal(t, "2026-03-05", weekly.WeekStart)
	require.Equal(t, "2026-03-11", weekly.WeekEnd)
	require.Equal(t, 2, weekly.Days[0].TotalCount)
	require.Equal(t, 2*60, weekly.TotalDuration)
}

func TestWeeklyStats_DefaultsToCurrentMonday(t *testing.T) {
	svc, _ := newStatsService(t)

	weekly, err := svc.WeeklyStats(context.Background(), 1, time.Time{})
	require.NoError(t, err)
	require.Equal(t, mondayOf(time.Now()).Format("2006-01-02"), weekly.WeekStart)
}

func TestMondayOf(t *testing.T) {
	loc := time.Local
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 3, 2, 10, 0, 0, 0, loc), "2026-03-02"}, // 周一
		{time.Date(2026, 3, 8, 23, 0, 0, 0, loc), "2026-03-02"}, // 周日
		{time.Date(2026, 3, 4, 0, 0, 0, 0, loc), "2026-03-02"},  // 周三
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, mondayOf(tc.in).Format("2006-01-02"))
	}
}

func TestRound4(t *testing.T) {
	require.InDelta(t, 0.6667, round4(100.0/150.0), 1e-9)
	require.InDelta(t, 0.3333, round4(1.0/3.0), 1e-9)
	require.InDelta(t, 0.5, round4(0.5), 1e-9)
}
