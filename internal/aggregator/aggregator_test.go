package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/models"
)

type fakeRepo struct {
	rows map[string]models.DailyLog
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: map[string]models.DailyLog{}} }

func (f *fakeRepo) UpsertDailyLog(ctx context.Context, log models.DailyLog) error {
	f.rows[log.Date] = log
	return nil
}

func (f *fakeRepo) GetDailyLog(ctx context.Context, date string) (*models.DailyLog, error) {
	if l, ok := f.rows[date]; ok {
		return &l, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListDailyLogsDesc(ctx context.Context, limit int) ([]models.DailyLog, error) {
	out := make([]models.DailyLog, 0, len(f.rows))
	for _, l := range f.rows {
		out = append(out, l)
	}
	return out, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAggregator_AccumulatesZoneSeconds(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	a := New(repo, fixedClock(now))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tick := models.EngineTick{T: uint64(i * 1000), Zone: models.ZoneGreen, Score: 90}
		require.NoError(t, a.Observe(ctx, tick))
	}
	require.NoError(t, a.Flush(ctx))

	row, err := repo.GetDailyLog(ctx, "2025-11-02")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 5, row.SampleCount)
	assert.Equal(t, 5, row.SecondsInGreen)
	assert.InDelta(t, 90, row.AvgScore, 0.01)
	assert.True(t, row.MeetsGoal)
}

func TestAggregator_UpsertIsAdditiveAcrossFlushes(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)
	a := New(repo, fixedClock(now))
	ctx := context.Background()

	a.Observe(ctx, models.EngineTick{T: 0, Zone: models.ZoneGreen, Score: 100})
	a.Flush(ctx)
	a.Observe(ctx, models.EngineTick{T: 1000, Zone: models.ZoneGreen, Score: 80})
	a.Flush(ctx)

	row, _ := repo.GetDailyLog(ctx, "2025-11-02")
	require.NotNil(t, row)
	assert.Equal(t, 2, row.SampleCount)
	assert.InDelta(t, 90, row.AvgScore, 0.01)
}

func TestAggregator_DayRolloverFlushesThenResets(t *testing.T) {
	repo := newFakeRepo()
	clockVal := time.Date(2025, 11, 2, 23, 59, 58, 0, time.UTC)
	a := New(repo, func() time.Time { return clockVal })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a.Observe(ctx, models.EngineTick{T: uint64(i * 1000), Zone: models.ZoneGreen, Score: 80})
	}

	clockVal = time.Date(2025, 11, 3, 0, 0, 1, 0, time.UTC)
	require.NoError(t, a.Observe(ctx, models.EngineTick{T: 4000, Zone: models.ZoneGreen, Score: 80}))

	oldRow, err := repo.GetDailyLog(ctx, "2025-11-02")
	require.NoError(t, err)
	require.NotNil(t, oldRow)
	assert.Equal(t, 3, oldRow.SampleCount)

	require.NoError(t, a.Flush(ctx))
	newRow, err := repo.GetDailyLog(ctx, "2025-11-03")
	require.NoError(t, err)
	require.NotNil(t, newRow)
	assert.Equal(t, 1, newRow.SampleCount)
}

func TestStreak_ZeroWhenTodayMissing(t *testing.T) {
	repo := newFakeRepo()
	streak, err := Streak(context.Background(), repo, "2025-11-02")
	require.NoError(t, err)
	assert.Equal(t, 0, streak)
}

func TestStreak_CountsConsecutiveDaysWithNoGap(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["2025-11-02"] = models.DailyLog{Date: "2025-11-02", MeetsGoal: true}
	repo.rows["2025-11-01"] = models.DailyLog{Date: "2025-11-01", MeetsGoal: true}
	repo.rows["2025-10-31"] = models.DailyLog{Date: "2025-10-31", MeetsGoal: false}

	streak, err := Streak(context.Background(), repo, "2025-11-02")
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
}

func TestStreak_ScoreExactly70CountsTowardGoal(t *testing.T) {
	repo := newFakeRepo()
	avg := models.StreakThreshold
	repo.rows["2025-11-02"] = models.DailyLog{Date: "2025-11-02", AvgScore: avg, MeetsGoal: avg >= models.StreakThreshold}

	streak, err := Streak(context.Background(), repo, "2025-11-02")
	require.NoError(t, err)
	assert.Equal(t, 1, streak)
}
