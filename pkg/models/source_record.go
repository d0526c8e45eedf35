package models

// SourceRecord is the normalized superset of what the three catalog APIs
// return for a single game. Each adapter maps its own wire format into this
// structure; fields the source has no concept of stay at their zero value
// (Rank is Bangumi-only, AverageHours and AllTitles are VNDB-only).
//
// A SourceRecord is immutable once returned by an adapter.
type SourceRecord struct {
	Name         string   `json:"name,omitempty"`
	NameCN       string   `json:"name_cn,omitempty"`
	AllTitles    []string `json:"all_titles,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Developer    string   `json:"developer,omitempty"`
	Score        float64  `json:"score,omitempty"`
	Rank         int      `json:"rank,omitempty"`
	AverageHours float64  `json:"average_hours,omitempty"`
	Image        string   `json:"image,omitempty"`
	Date         string   `json:"date,omitempty"`
	NSFW         *bool    `json:"nsfw,omitempty"`
}

// DisplayName prefers the original title and falls back to the localized one.
func (r *SourceRecord) DisplayName() string {
	if r == nil {
		return ""
	}
	if r.Name != "" {
		return r.Name
	}
	return r.NameCN
}
