package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"galhub/internal/games"
	"galhub/pkg/database"
	"galhub/pkg/models"
)

func main() {
	var (
		gamesOut    = flag.String("games", "data/games.csv", "output CSV path for games")
		sessionsOut = flag.String("sessions", "data/sessions.csv", "output CSV path for play sessions")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportGames(ctx, db, *gamesOut); err != nil {
		log.Fatalf("export games failed: %v", err)
	}
	if err := exportSessions(ctx, db, *sessionsOut); err != nil {
		log.Fatalf("export sessions failed: %v", err)
	}

	log.Printf("✅ exported games to %s and sessions to %s", *gamesOut, *sessionsOut)
}

var gameHeader = []string{
	"id", "bgm_id", "vndb_id", "ymgal_id", "id_type",
	"name", "name_cn", "image", "summary", "developer", "date",
	"tags", "aliases", "all_titles",
	"score", "rank", "average_hours", "nsfw",
}

func exportGames(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(gameHeader); err != nil {
		return err
	}

	repo := games.NewRepo(db)
	for offset := 0; ; {
		page, _, err := repo.List(ctx, games.ListOptions{Sort: "created_at", Limit: 200, Offset: offset})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		for i := range page {
			if err := w.Write(gameRow(&page[i])); err != nil {
				return err
			}
		}
		offset += len(page)
	}

	w.Flush()
	return w.Error()
}

func gameRow(g *models.Game) []string {
	return []string{
		strconv.FormatInt(g.ID, 10),
		g.BgmID,
		g.VndbID,
		g.YmgalID,
		string(g.IDType),
		g.Name,
		g.NameCN,
		g.Image,
		g.Summary,
		g.Developer,
		g.Date,
		jsonCell(g.Tags),
		jsonCell(g.Aliases),
		jsonCell(g.AllTitles),
		strconv.FormatFloat(g.Score, 'f', -1, 64),
		strconv.Itoa(g.Rank),
		strconv.FormatFloat(g.AverageHours, 'f', -1, 64),
		strconv.FormatBool(g.NSFW),
	}
}

// jsonCell stores a string array as compact JSON so the round trip through
// CSV is lossless.
func jsonCell(values []string) string {
	if len(values) == 0 {
		return ""
	}
	b, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(b)
}

func exportSessions(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"game_id", "start_time", "end_time", "duration", "day"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT game_id, start_time, end_time, duration, day
        FROM game_sessions
        ORDER BY start_time
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			gameID   int64
			start    int64
			end      int64
			duration int64
			day      string
		)
		if err := rows.Scan(&gameID, &start, &end, &duration, &day); err != nil {
			return err
		}
		if err := w.Write([]string{
			strconv.FormatInt(gameID, 10),
			strconv.FormatInt(start, 10),
			strconv.FormatInt(end, 10),
			strconv.FormatInt(duration, 10),
			day,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
