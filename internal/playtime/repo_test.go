package playtime

import (
	"context"
	"testing"
	"time"

	"galhub/internal/games"
	"galhub/pkg/database"
	"galhub/pkg/models"
)

func newTestRepo(t *testing.T) (*Repo, int64) {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gameID, err := games.NewRepo(db).Insert(context.Background(), &models.Game{
		Name:   "Ever17",
		VndbID: "v17",
		IDType: models.IDTypeVndb,
	})
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return NewRepo(db), gameID
}

func TestRecordDerivesDurationAndDay(t *testing.T) {
	r, gameID := newTestRepo(t)
	start := time.Date(2026, 8, 20, 21, 0, 0, 0, time.Local).Unix()

	id, err := r.Record(context.Background(), models.PlaySession{
		GameID:    gameID,
		StartTime: start,
		EndTime:   start + 3600,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a session id")
	}

	sessions, err := r.List(context.Background(), gameID, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	if sessions[0].Duration != 3600 {
		t.Fatalf("duration not derived: %d", sessions[0].Duration)
	}
	if sessions[0].Date != "2026-08-20" {
		t.Fatalf("day not derived: %q", sessions[0].Date)
	}
}

func TestRecordRejectsBadInput(t *testing.T) {
	r, gameID := newTestRepo(t)
	ctx := context.Background()

	if _, err := r.Record(ctx, models.PlaySession{StartTime: 100, EndTime: 200}); err == nil {
		t.Fatalf("missing game id must fail")
	}
	if _, err := r.Record(ctx, models.PlaySession{GameID: gameID, StartTime: 200, EndTime: 100}); err == nil {
		t.Fatalf("end before start must fail")
	}
	// unknown game violates the foreign key
	if _, err := r.Record(ctx, models.PlaySession{GameID: 999, StartTime: 100, EndTime: 200}); err == nil {
		t.Fatalf("unknown game id must fail")
	}
}

func TestStatisticsAggregates(t *testing.T) {
	r, gameID := newTestRepo(t)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 20, 20, 0, 0, 0, time.Local).Unix()
	day2 := time.Date(2026, 8, 21, 20, 0, 0, 0, time.Local).Unix()
	for _, s := range []models.PlaySession{
		{GameID: gameID, StartTime: day1, EndTime: day1 + 1800},
		{GameID: gameID, StartTime: day1 + 3600, EndTime: day1 + 3600 + 600},
		{GameID: gameID, StartTime: day2, EndTime: day2 + 1200},
	} {
		if _, err := r.Record(ctx, s); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	stats, err := r.Statistics(ctx, gameID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalTime != 1800+600+1200 {
		t.Fatalf("total time = %d", stats.TotalTime)
	}
	if stats.SessionCount != 3 {
		t.Fatalf("session count = %d", stats.SessionCount)
	}
	if stats.LastPlayed == nil || *stats.LastPlayed != day2 {
		t.Fatalf("last played = %v", stats.LastPlayed)
	}
	if len(stats.DailyStats) != 2 {
		t.Fatalf("expected 2 daily buckets, got %d", len(stats.DailyStats))
	}
	if stats.DailyStats[0].Playtime != 2400 {
		t.Fatalf("day1 playtime = %d", stats.DailyStats[0].Playtime)
	}
}

func TestRecentSessionsSpanGames(t *testing.T) {
	r, gameID := newTestRepo(t)
	ctx := context.Background()

	otherID, err := games.NewRepo(r.DB).Insert(ctx, &models.Game{
		Name:   "Clannad",
		BgmID:  "51",
		IDType: models.IDTypeBgm,
	})
	if err != nil {
		t.Fatalf("seed second game: %v", err)
	}

	base := time.Date(2026, 8, 22, 20, 0, 0, 0, time.Local).Unix()
	for _, s := range []models.PlaySession{
		{GameID: gameID, StartTime: base, EndTime: base + 600},
		{GameID: otherID, StartTime: base + 3600, EndTime: base + 3600 + 600},
		{GameID: gameID, StartTime: base + 7200, EndTime: base + 7200 + 600},
	} {
		if _, err := r.Record(ctx, s); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := r.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(recent))
	}
	if recent[0].GameID != gameID || recent[0].StartTime != base+7200 {
		t.Fatalf("newest session first, got %+v", recent[0])
	}
	if recent[1].GameID != otherID {
		t.Fatalf("second newest must come from the other game, got %+v", recent[1])
	}
}

func TestPlaytimeForDay(t *testing.T) {
	r, gameID := newTestRepo(t)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 23, 9, 0, 0, 0, time.Local).Unix()
	day2 := time.Date(2026, 8, 24, 9, 0, 0, 0, time.Local).Unix()
	for _, s := range []models.PlaySession{
		{GameID: gameID, StartTime: day1, EndTime: day1 + 900},
		{GameID: gameID, StartTime: day1 + 3600, EndTime: day1 + 3600 + 300},
		{GameID: gameID, StartTime: day2, EndTime: day2 + 1800},
	} {
		if _, err := r.Record(ctx, s); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	total, err := r.PlaytimeForDay(ctx, gameID, "2026-08-23")
	if err != nil {
		t.Fatalf("playtime for day: %v", err)
	}
	if total != 1200 {
		t.Fatalf("day total = %d, want 1200", total)
	}

	total, err = r.PlaytimeForDay(ctx, gameID, "2026-08-25")
	if err != nil {
		t.Fatalf("playtime for empty day: %v", err)
	}
	if total != 0 {
		t.Fatalf("empty day total = %d, want 0", total)
	}
}

func TestStatisticsEmptyGame(t *testing.T) {
	r, gameID := newTestRepo(t)
	stats, err := r.Statistics(context.Background(), gameID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalTime != 0 || stats.SessionCount != 0 || stats.LastPlayed != nil {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
