package models

import "time"

// Game is the canonical merged record the rest of the system renders and
// persists. The per-source sub-records are populated iff that source returned
// data during resolution; the flattened display fields are computed from them
// by the merge engine.
type Game struct {
	ID int64 `json:"id"`

	BgmID   string `json:"bgm_id,omitempty"`
	VndbID  string `json:"vndb_id,omitempty"`
	YmgalID string `json:"ymgal_id,omitempty"`
	IDType  IDType `json:"id_type"`

	Name         string   `json:"name,omitempty"`
	NameCN       string   `json:"name_cn,omitempty"`
	Image        string   `json:"image,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Developer    string   `json:"developer,omitempty"`
	Date         string   `json:"date,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	AllTitles    []string `json:"all_titles,omitempty"`
	Score        float64  `json:"score,omitempty"`
	Rank         int      `json:"rank,omitempty"`
	AverageHours float64  `json:"average_hours,omitempty"`
	NSFW         bool     `json:"nsfw,omitempty"`

	BgmData   *SourceRecord `json:"bgm_data,omitempty"`
	VndbData  *SourceRecord `json:"vndb_data,omitempty"`
	YmgalData *SourceRecord `json:"ymgal_data,omitempty"`
	Custom    *CustomData   `json:"custom_data,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// IDs returns the game's source identifiers as a set.
func (g *Game) IDs() IDSet {
	return IDSet{BgmID: g.BgmID, VndbID: g.VndbID, YmgalID: g.YmgalID}
}
