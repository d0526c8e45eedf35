package playtime

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"galhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Record stores one completed play session. Duration and the local day are
// derived from the timestamps; a zero EndTime means the caller reports the
// duration directly.
func (r *Repo) Record(ctx context.Context, s models.PlaySession) (int64, error) {
	if s.GameID <= 0 {
		return 0, fmt.Errorf("record session: game id required")
	}
	if s.EndTime != 0 && s.EndTime < s.StartTime {
		return 0, fmt.Errorf("record session: end before start")
	}
	if s.EndTime != 0 {
		s.Duration = s.EndTime - s.StartTime
	}
	if s.Duration < 0 {
		return 0, fmt.Errorf("record session: negative duration")
	}
	day := time.Unix(s.StartTime, 0).Format("2006-01-02")

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO game_sessions (game_id, start_time, end_time, duration, day)
		VALUES (?, ?, ?, ?, ?)
	`, s.GameID, s.StartTime, s.EndTime, s.Duration, day)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record session id: %w", err)
	}
	return id, nil
}

func (r *Repo) List(ctx context.Context, gameID int64, limit, offset int) ([]models.PlaySession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, game_id, start_time, end_time, duration, day
		FROM game_sessions
		WHERE game_id = ?
		ORDER BY start_time DESC
		LIMIT ? OFFSET ?
	`, gameID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]models.PlaySession, 0, limit)
	for rows.Next() {
		var s models.PlaySession
		if err := rows.Scan(&s.ID, &s.GameID, &s.StartTime, &s.EndTime, &s.Duration, &s.Date); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// RecentSessions returns the latest sessions across every game, most recent
// first, for the activity feed.
func (r *Repo) RecentSessions(ctx context.Context, limit int) ([]models.PlaySession, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, game_id, start_time, end_time, duration, day
		FROM game_sessions
		ORDER BY start_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	out := make([]models.PlaySession, 0, limit)
	for rows.Next() {
		var s models.PlaySession
		if err := rows.Scan(&s.ID, &s.GameID, &s.StartTime, &s.EndTime, &s.Duration, &s.Date); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// PlaytimeForDay sums the seconds one game was played on a single day
// (YYYY-MM-DD). Days with no sessions sum to zero.
func (r *Repo) PlaytimeForDay(ctx context.Context, gameID int64, day string) (int64, error) {
	var total int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration), 0)
		FROM game_sessions
		WHERE game_id = ? AND day = ?
	`, gameID, day).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("playtime for day: %w", err)
	}
	return total, nil
}

// Statistics aggregates all sessions of one game, including the per-day
// breakdown used for charts.
func (r *Repo) Statistics(ctx context.Context, gameID int64) (*models.GameStatistics, error) {
	stats := &models.GameStatistics{GameID: gameID}

	var lastPlayed sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration), 0), COUNT(*), MAX(start_time)
		FROM game_sessions
		WHERE game_id = ?
	`, gameID).Scan(&stats.TotalTime, &stats.SessionCount, &lastPlayed)
	if err != nil {
		return nil, fmt.Errorf("game statistics: %w", err)
	}
	if lastPlayed.Valid {
		stats.LastPlayed = &lastPlayed.Int64
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT day, SUM(duration)
		FROM game_sessions
		WHERE game_id = ?
		GROUP BY day
		ORDER BY day
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("daily statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DailyPlaytime
		if err := rows.Scan(&d.Date, &d.Playtime); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		stats.DailyStats = append(stats.DailyStats, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return stats, nil
}
