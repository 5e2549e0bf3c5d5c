// Package storage adapts the aggregator, calibration and settings
// repositories onto Postgres via pgx, mirroring the teacher's pgxpool
// connection and error-wrapping conventions.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
)

// PostgresStore backs the calibration, daily-log and settings repositories
// with a single connection pool. Each method is an atomic unit at the
// persistence layer (spec.md §5); the aggregator's upsert runs inside a
// transaction to serialize against the streak scan.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- daily_posture_logs ---

// UpsertDailyLog merges incoming into any existing row for its date inside
// a single transaction, so the update and the streak scan never interleave
// (spec.md §5).
func (s *PostgresStore) UpsertDailyLog(ctx context.Context, log models.DailyLog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert daily log: %w", err)
	}
	defer tx.Rollback(ctx)

	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO daily_posture_logs (id, date, seconds_in_green, seconds_in_yellow, seconds_in_red, avg_score, sample_count, meets_goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			seconds_in_green  = daily_posture_logs.seconds_in_green + EXCLUDED.seconds_in_green,
			seconds_in_yellow = daily_posture_logs.seconds_in_yellow + EXCLUDED.seconds_in_yellow,
			seconds_in_red    = daily_posture_logs.seconds_in_red + EXCLUDED.seconds_in_red,
			avg_score = (daily_posture_logs.avg_score * daily_posture_logs.sample_count + EXCLUDED.avg_score * EXCLUDED.sample_count)
				/ (daily_posture_logs.sample_count + EXCLUDED.sample_count),
			sample_count = daily_posture_logs.sample_count + EXCLUDED.sample_count,
			meets_goal = (
				(daily_posture_logs.avg_score * daily_posture_logs.sample_count + EXCLUDED.avg_score * EXCLUDED.sample_count)
				/ (daily_posture_logs.sample_count + EXCLUDED.sample_count)
			) >= $9`,
		log.ID, log.Date, log.SecondsInGreen, log.SecondsInYellow, log.SecondsInRed,
		log.AvgScore, log.SampleCount, log.MeetsGoal, models.StreakThreshold,
	)
	if err != nil {
		return fmt.Errorf("upsert daily log: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetDailyLog(ctx context.Context, date string) (*models.DailyLog, error) {
	var l models.DailyLog
	err := s.pool.QueryRow(ctx, `
		SELECT id, date, seconds_in_green, seconds_in_yellow, seconds_in_red, avg_score, sample_count, meets_goal
		FROM daily_posture_logs WHERE date = $1`, date,
	).Scan(&l.ID, &l.Date, &l.SecondsInGreen, &l.SecondsInYellow, &l.SecondsInRed, &l.AvgScore, &l.SampleCount, &l.MeetsGoal)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get daily log: %w", err)
	}
	return &l, nil
}

func (s *PostgresStore) ListDailyLogsDesc(ctx context.Context, limit int) ([]models.DailyLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, date, seconds_in_green, seconds_in_yellow, seconds_in_red, avg_score, sample_count, meets_goal
		FROM daily_posture_logs ORDER BY date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list daily logs: %w", err)
	}
	defer rows.Close()

	var logs []models.DailyLog
	for rows.Next() {
		var l models.DailyLog
		if err := rows.Scan(&l.ID, &l.Date, &l.SecondsInGreen, &l.SecondsInYellow, &l.SecondsInRed, &l.AvgScore, &l.SampleCount, &l.MeetsGoal); err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// --- posture_calibration ---

// UpsertActiveCalibration installs rec as the sole active calibration for
// its user, enforcing UNIQUE(userId) WHERE isActive=1 at the repository
// layer (spec.md §6).
func (s *PostgresStore) UpsertActiveCalibration(ctx context.Context, rec models.PostureCalibrationRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert calibration: %w", err)
	}
	defer tx.Rollback(ctx)

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now()

	if _, err := tx.Exec(ctx, `UPDATE posture_calibration SET is_active = false WHERE user_id = $1 AND is_active = true`, rec.UserID); err != nil {
		return fmt.Errorf("deactivate existing calibration: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO posture_calibration
			(id, user_id, baseline_pitch, baseline_ehd, baseline_dpr, quality, sample_count, sensitivity,
			 custom_pitch_threshold, custom_ehd_threshold, custom_dpr_threshold, calibrated_at, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,true,$13,$13)`,
		rec.ID, rec.UserID, rec.BaselinePitchDeg, rec.BaselineEHD, rec.BaselineDPR, rec.Quality, rec.SampleCount,
		rec.Sensitivity, rec.CustomPitchThreshold, rec.CustomEHDThreshold, rec.CustomDPRThreshold, now,
	)
	if err != nil {
		return fmt.Errorf("insert calibration: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) GetActiveCalibration(ctx context.Context, userID string) (*models.PostureCalibrationRecord, error) {
	var rec models.PostureCalibrationRecord
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, baseline_pitch, baseline_ehd, baseline_dpr, quality, sample_count, sensitivity,
		       custom_pitch_threshold, custom_ehd_threshold, custom_dpr_threshold, calibrated_at, is_active, created_at, updated_at
		FROM posture_calibration WHERE user_id = $1 AND is_active = true`, userID,
	).Scan(&rec.ID, &rec.UserID, &rec.BaselinePitchDeg, &rec.BaselineEHD, &rec.BaselineDPR, &rec.Quality, &rec.SampleCount,
		&rec.Sensitivity, &rec.CustomPitchThreshold, &rec.CustomEHDThreshold, &rec.CustomDPRThreshold,
		&rec.CalibratedAt, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active calibration: %w", err)
	}
	return &rec, nil
}

// --- calibration_baselines ---

func (s *PostgresStore) SaveCalibrationBaselineRow(ctx context.Context, row models.CalibrationBaselineRow) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calibration_baselines (id, created_at, detector, keypoints_json)
		VALUES ($1, $2, $3, $4)`,
		row.ID, row.CreatedAt.UnixMilli(), row.Detector, row.KeypointsJSON)
	if err != nil {
		return fmt.Errorf("save calibration baseline row: %w", err)
	}
	return nil
}

// --- settings ---

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}
