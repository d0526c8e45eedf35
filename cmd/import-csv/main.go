package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"galhub/pkg/database"
)

func main() {
	var (
		gamesIn    = flag.String("games", "data/games.csv", "input CSV path for games")
		sessionsIn = flag.String("sessions", "data/sessions.csv", "input CSV path for play sessions")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importGames(ctx, db, *gamesIn); err != nil {
		log.Fatalf("import games failed: %v", err)
	}
	if err := importSessions(ctx, db, *sessionsIn); err != nil {
		log.Fatalf("import sessions failed: %v", err)
	}

	log.Printf("✅ imported games from %s and sessions from %s", *gamesIn, *sessionsIn)
}

// importGames upserts by the exported row id so session rows keep pointing at
// the right game after a restore.
func importGames(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO games (
		  id, bgm_id, vndb_id, ymgal_id, id_type,
		  name, name_cn, image, summary, developer, date,
		  tags, aliases, all_titles,
		  score, rank, average_hours, nsfw
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  bgm_id = excluded.bgm_id,
		  vndb_id = excluded.vndb_id,
		  ymgal_id = excluded.ymgal_id,
		  id_type = excluded.id_type,
		  name = excluded.name,
		  name_cn = excluded.name_cn,
		  image = excluded.image,
		  summary = excluded.summary,
		  developer = excluded.developer,
		  date = excluded.date,
		  tags = excluded.tags,
		  aliases = excluded.aliases,
		  all_titles = excluded.all_titles,
		  score = excluded.score,
		  rank = excluded.rank,
		  average_hours = excluded.average_hours,
		  nsfw = excluded.nsfw,
		  updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id, err := parseInt(valueAt(header, row, "id"))
		if err != nil || id == 0 {
			continue
		}
		name := valueAt(header, row, "name")
		if name == "" {
			continue
		}

		idType := valueAt(header, row, "id_type")
		if idType == "" {
			idType = "unknown"
		}
		score, err := parseFloat(valueAt(header, row, "score"))
		if err != nil {
			return fmt.Errorf("parse score for %d: %w", id, err)
		}
		rank, err := parseInt(valueAt(header, row, "rank"))
		if err != nil {
			return fmt.Errorf("parse rank for %d: %w", id, err)
		}
		hours, err := parseFloat(valueAt(header, row, "average_hours"))
		if err != nil {
			return fmt.Errorf("parse average_hours for %d: %w", id, err)
		}
		nsfw, err := parseBool(valueAt(header, row, "nsfw"))
		if err != nil {
			return fmt.Errorf("parse nsfw for %d: %w", id, err)
		}
		tags, err := parseJSONArray(valueAt(header, row, "tags"))
		if err != nil {
			return fmt.Errorf("parse tags for %d: %w", id, err)
		}
		aliases, err := parseJSONArray(valueAt(header, row, "aliases"))
		if err != nil {
			return fmt.Errorf("parse aliases for %d: %w", id, err)
		}
		titles, err := parseJSONArray(valueAt(header, row, "all_titles"))
		if err != nil {
			return fmt.Errorf("parse all_titles for %d: %w", id, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			nullString(valueAt(header, row, "bgm_id")),
			nullString(valueAt(header, row, "vndb_id")),
			nullString(valueAt(header, row, "ymgal_id")),
			idType,
			name,
			nullString(valueAt(header, row, "name_cn")),
			nullString(valueAt(header, row, "image")),
			nullString(valueAt(header, row, "summary")),
			nullString(valueAt(header, row, "developer")),
			nullString(valueAt(header, row, "date")),
			tags,
			aliases,
			titles,
			score,
			rank,
			hours,
			boolToInt(nsfw),
		); err != nil {
			return err
		}
	}

	return nil
}

// importSessions skips rows that already exist or whose game is missing, so
// re-running the import does not duplicate playtime.
func importSessions(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO game_sessions (game_id, start_time, end_time, duration, day)
		SELECT ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM games WHERE id = ?)
		  AND NOT EXISTS (
		    SELECT 1 FROM game_sessions
		    WHERE game_id = ? AND start_time = ? AND end_time = ?
		  )
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		gameID, err := parseInt(valueAt(header, row, "game_id"))
		if err != nil || gameID == 0 {
			continue
		}
		start, err := parseInt(valueAt(header, row, "start_time"))
		if err != nil {
			return fmt.Errorf("parse start_time for game %d: %w", gameID, err)
		}
		end, err := parseInt(valueAt(header, row, "end_time"))
		if err != nil {
			return fmt.Errorf("parse end_time for game %d: %w", gameID, err)
		}
		duration, err := parseInt(valueAt(header, row, "duration"))
		if err != nil {
			return fmt.Errorf("parse duration for game %d: %w", gameID, err)
		}
		day := valueAt(header, row, "day")
		if day == "" {
			day = time.Unix(start, 0).Format("2006-01-02")
		}

		if _, err := stmt.ExecContext(
			ctx,
			gameID, start, end, duration, day,
			gameID,
			gameID, start, end,
		); err != nil {
			return err
		}
	}

	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// parseJSONArray validates the cell and returns it as the stored JSON text,
// or NULL for an empty cell.
func parseJSONArray(raw string) (sql.NullString, error) {
	if raw == "" {
		return sql.NullString{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: raw, Valid: true}, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
