package aggregator

import (
	"context"
	"time"

	"github.com/posture-coach/engine/internal/models"
)

// Streak scans daily logs in descending date order, bounded by
// MaxStreakDays, and returns the number of consecutive days ending today
// with MeetsGoal == true (spec.md §4.11).
func Streak(ctx context.Context, repo Repository, today string) (int, error) {
	logs, err := repo.ListDailyLogsDesc(ctx, models.MaxStreakDays)
	if err != nil {
		return 0, err
	}

	byDate := make(map[string]models.DailyLog, len(logs))
	for _, l := range logs {
		byDate[l.Date] = l
	}

	todayLog, ok := byDate[today]
	if !ok || !todayLog.MeetsGoal {
		return 0, nil
	}

	streak := 1
	cursor, err := time.Parse("2006-01-02", today)
	if err != nil {
		return 0, err
	}

	for i := 1; i < models.MaxStreakDays; i++ {
		cursor = cursor.AddDate(0, 0, -1)
		log, ok := byDate[cursor.Format("2006-01-02")]
		if !ok || !log.MeetsGoal {
			break
		}
		streak++
	}

	return streak, nil
}
