package models

import "time"

// Collection is one node of the two-level library organization tree: a group
// when ParentID is nil, a category inside that group otherwise. Games are
// linked to categories, never to groups directly.
type Collection struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// CollectionWithCount is a category plus how many games it holds.
type CollectionWithCount struct {
	Collection
	GameCount int `json:"game_count"`
}

// CollectionGroup is a root collection with its categories, the shape the
// sidebar tree renders from.
type CollectionGroup struct {
	Collection
	Categories []CollectionWithCount `json:"categories"`
}

// CollectionPatch is a partial collection update following the same
// tri-state contract as GamePatch. Clearing parent_id turns a category back
// into a root group.
type CollectionPatch struct {
	Name      Patch[string] `json:"name"`
	ParentID  Patch[int64]  `json:"parent_id"`
	Icon      Patch[string] `json:"icon"`
	SortOrder Patch[int]    `json:"sort_order"`
}

// IsZero reports whether the patch carries no change at all.
func (p CollectionPatch) IsZero() bool {
	return p.Name.IsUnchanged() && p.ParentID.IsUnchanged() &&
		p.Icon.IsUnchanged() && p.SortOrder.IsUnchanged()
}
