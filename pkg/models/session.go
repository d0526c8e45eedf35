package models

// PlaySession is one recorded play of a game, in unix seconds.
type PlaySession struct {
	ID        int64  `json:"id"`
	GameID    int64  `json:"game_id"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Duration  int64  `json:"duration"`
	Date      string `json:"date"` // YYYY-MM-DD, local day the session belongs to
}

// DailyPlaytime is one day's accumulated playtime in seconds.
type DailyPlaytime struct {
	Date     string `json:"date"`
	Playtime int64  `json:"playtime"`
}

// GameStatistics is the per-game aggregate maintained alongside sessions.
type GameStatistics struct {
	GameID       int64           `json:"game_id"`
	TotalTime    int64           `json:"total_time"`
	SessionCount int64           `json:"session_count"`
	LastPlayed   *int64          `json:"last_played,omitempty"`
	DailyStats   []DailyPlaytime `json:"daily_stats,omitempty"`
}
