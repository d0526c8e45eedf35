package models

// CustomData holds user-authored overrides for a game. Scalar fields replace
// the merged value when set; Tags and Aliases are merged additively into the
// computed arrays (a custom tag never removes a catalog tag).
type CustomData struct {
	Name      string   `json:"name,omitempty"`
	Image     string   `json:"image,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Developer string   `json:"developer,omitempty"`
	Date      string   `json:"date,omitempty"`
	NSFW      *bool    `json:"nsfw,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Aliases   []string `json:"aliases,omitempty"`
}
