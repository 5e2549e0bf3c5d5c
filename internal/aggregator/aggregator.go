// Package aggregator implements the daily posture accumulator and streak
// computation described in spec.md §4.11.
package aggregator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/posture-coach/engine/internal/models"
)

const (
	minElapsedSeconds = 1
	maxElapsedSeconds = 5
)

// Repository is the storage-agnostic persistence boundary (spec.md §6: "the
// repository is a trait/interface").
type Repository interface {
	UpsertDailyLog(ctx context.Context, log models.DailyLog) error
	GetDailyLog(ctx context.Context, date string) (*models.DailyLog, error)
	ListDailyLogsDesc(ctx context.Context, limit int) ([]models.DailyLog, error)
}

// accumulator is the in-memory running total for the current calendar
// date.
type accumulator struct {
	date            string
	secondsInGreen  int
	secondsInYellow int
	secondsInRed    int
	scoreSum        float64
	sampleCount     int
	lastTickT       uint64
	hasLastTick     bool
}

func newAccumulator(date string) accumulator {
	return accumulator{date: date}
}

// Aggregator owns the current-day accumulator and flushes it to the
// repository on day rollover and on a periodic timer.
type Aggregator struct {
	repo  Repository
	acc   accumulator
	clock func() time.Time
}

// New creates an aggregator seeded to today's local date.
func New(repo Repository, clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{repo: repo, acc: newAccumulator(clock().Format("2006-01-02")), clock: clock}
}

// Observe rolls one tick into the current-day accumulator, flushing and
// resetting first if the calendar date has advanced.
func (a *Aggregator) Observe(ctx context.Context, tick models.EngineTick) error {
	currentDate := a.clock().Format("2006-01-02")
	if currentDate != a.acc.date {
		if err := a.flush(ctx); err != nil {
			return err
		}
		a.acc = newAccumulator(currentDate)
	}

	elapsed := 1
	if a.acc.hasLastTick {
		elapsed = int(clampInt(round((float64(tick.T)-float64(a.acc.lastTickT))/1000), minElapsedSeconds, maxElapsedSeconds))
	}

	switch tick.Zone {
	case models.ZoneGreen:
		a.acc.secondsInGreen += elapsed
	case models.ZoneYellow:
		a.acc.secondsInYellow += elapsed
	default:
		a.acc.secondsInRed += elapsed
	}
	a.acc.scoreSum += float64(tick.Score)
	a.acc.sampleCount++
	a.acc.lastTickT = tick.T
	a.acc.hasLastTick = true

	return nil
}

// Flush persists the current accumulator via an upsert (when sampleCount is
// 0 it writes nothing and returns nil, per spec.md §5 shutdown semantics),
// and resets the in-memory counters for the same date so the next flush only
// contributes its own partition of the day's samples (the upsert merges
// additively).
func (a *Aggregator) Flush(ctx context.Context) error {
	return a.flush(ctx)
}

func (a *Aggregator) flush(ctx context.Context) error {
	if a.acc.sampleCount == 0 {
		return nil
	}

	avg := a.acc.scoreSum / float64(a.acc.sampleCount)
	log := models.DailyLog{
		Date:            a.acc.date,
		SecondsInGreen:  a.acc.secondsInGreen,
		SecondsInYellow: a.acc.secondsInYellow,
		SecondsInRed:    a.acc.secondsInRed,
		AvgScore:        avg,
		SampleCount:     a.acc.sampleCount,
		MeetsGoal:       avg >= models.StreakThreshold,
	}

	if err := a.upsert(ctx, log); err != nil {
		return fmt.Errorf("flush daily log: %w", err)
	}

	date, lastT := a.acc.date, a.acc.lastTickT
	a.acc = newAccumulator(date)
	a.acc.lastTickT = lastT
	a.acc.hasLastTick = true
	return nil
}

// upsert merges incoming with any existing row under the weighted-average
// identity described in spec.md §4.11.
func (a *Aggregator) upsert(ctx context.Context, incoming models.DailyLog) error {
	existing, err := a.repo.GetDailyLog(ctx, incoming.Date)
	if err != nil {
		return err
	}

	merged := incoming
	if existing != nil {
		newCount := existing.SampleCount + incoming.SampleCount
		merged.AvgScore = (existing.AvgScore*float64(existing.SampleCount) + incoming.AvgScore*float64(incoming.SampleCount)) / float64(newCount)
		merged.SampleCount = newCount
		merged.SecondsInGreen += existing.SecondsInGreen
		merged.SecondsInYellow += existing.SecondsInYellow
		merged.SecondsInRed += existing.SecondsInRed
		merged.ID = existing.ID
	}
	merged.MeetsGoal = merged.AvgScore >= models.StreakThreshold

	return a.repo.UpsertDailyLog(ctx, merged)
}

func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
