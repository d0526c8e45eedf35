package sync

import "time"

// GameEvent is broadcast to every connected client whenever the library
// changes. Type is one of "game.insert", "game.update", "game.delete".
type GameEvent struct {
	Type   string    `json:"type"`
	GameID int64     `json:"game_id"`
	Name   string    `json:"name,omitempty"`
	At     time.Time `json:"at"`
}
