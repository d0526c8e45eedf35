package models

import (
	"encoding/json"
	"fmt"
)

// Patch is a tri-state field update: Unchanged (leave the stored value
// alone), Cleared (explicitly set it to NULL/empty) or Set (overwrite with a
// new value). The zero value is Unchanged, so a GamePatch decoded from JSON
// only carries the keys the client actually sent.
//
// The three states are kept as an explicit enum rather than relying on key
// presence so the contract survives re-marshaling.
type Patch[T any] struct {
	state patchState
	value T
}

type patchState uint8

const (
	patchUnchanged patchState = iota
	patchCleared
	patchSet
)

// Set returns a patch that overwrites the field with v.
func Set[T any](v T) Patch[T] {
	return Patch[T]{state: patchSet, value: v}
}

// Clear returns a patch that explicitly empties the field.
func Clear[T any]() Patch[T] {
	return Patch[T]{state: patchCleared}
}

func (p Patch[T]) IsUnchanged() bool { return p.state == patchUnchanged }
func (p Patch[T]) IsCleared() bool   { return p.state == patchCleared }

// Value returns the new value and true only when the patch is Set.
func (p Patch[T]) Value() (T, bool) {
	return p.value, p.state == patchSet
}

// UnmarshalJSON is only invoked when the key is present in the payload:
// JSON null means Cleared, anything else is a Set value. An absent key never
// reaches here and leaves the patch Unchanged.
func (p *Patch[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = Patch[T]{state: patchCleared}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = Patch[T]{state: patchSet, value: v}
	return nil
}

// MarshalJSON encodes Cleared as null and Set as the value. Unchanged has no
// JSON representation of its own; container types must skip the key instead
// (see GamePatch.MarshalJSON).
func (p Patch[T]) MarshalJSON() ([]byte, error) {
	switch p.state {
	case patchSet:
		return json.Marshal(p.value)
	default:
		return []byte("null"), nil
	}
}

// GamePatch is a partial game update. Every field follows the tri-state
// contract; the persistence layer translates Unchanged into "column
// untouched", Cleared into an explicit NULL and Set into an overwrite.
type GamePatch struct {
	BgmID   Patch[string] `json:"bgm_id"`
	VndbID  Patch[string] `json:"vndb_id"`
	YmgalID Patch[string] `json:"ymgal_id"`
	IDType  Patch[IDType] `json:"id_type"`

	Name         Patch[string]   `json:"name"`
	NameCN       Patch[string]   `json:"name_cn"`
	Image        Patch[string]   `json:"image"`
	Summary      Patch[string]   `json:"summary"`
	Developer    Patch[string]   `json:"developer"`
	Date         Patch[string]   `json:"date"`
	Tags         Patch[[]string] `json:"tags"`
	Aliases      Patch[[]string] `json:"aliases"`
	AllTitles    Patch[[]string] `json:"all_titles"`
	Score        Patch[float64]  `json:"score"`
	Rank         Patch[int]      `json:"rank"`
	AverageHours Patch[float64]  `json:"average_hours"`
	NSFW         Patch[bool]     `json:"nsfw"`

	BgmData   Patch[SourceRecord] `json:"bgm_data"`
	VndbData  Patch[SourceRecord] `json:"vndb_data"`
	YmgalData Patch[SourceRecord] `json:"ymgal_data"`
	Custom    Patch[CustomData]   `json:"custom_data"`
}

// IsZero reports whether the patch carries no change at all.
func (p GamePatch) IsZero() bool {
	for _, f := range p.fields() {
		if !f.unchanged() {
			return false
		}
	}
	return true
}

// MarshalJSON emits only the keys whose state is not Unchanged, so a
// round-tripped payload stays minimal.
func (p GamePatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage)
	for _, f := range p.fields() {
		if f.unchanged() {
			continue
		}
		b, err := f.marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal patch field %s: %w", f.key, err)
		}
		out[f.key] = b
	}
	return json.Marshal(out)
}

type patchField struct {
	key       string
	unchanged func() bool
	marshal   func() ([]byte, error)
}

func field[T any](key string, p *Patch[T]) patchField {
	return patchField{
		key:       key,
		unchanged: p.IsUnchanged,
		marshal:   p.MarshalJSON,
	}
}

func (p *GamePatch) fields() []patchField {
	return []patchField{
		field("bgm_id", &p.BgmID),
		field("vndb_id", &p.VndbID),
		field("ymgal_id", &p.YmgalID),
		field("id_type", &p.IDType),
		field("name", &p.Name),
		field("name_cn", &p.NameCN),
		field("image", &p.Image),
		field("summary", &p.Summary),
		field("developer", &p.Developer),
		field("date", &p.Date),
		field("tags", &p.Tags),
		field("aliases", &p.Aliases),
		field("all_titles", &p.AllTitles),
		field("score", &p.Score),
		field("rank", &p.Rank),
		field("average_hours", &p.AverageHours),
		field("nsfw", &p.NSFW),
		field("bgm_data", &p.BgmData),
		field("vndb_data", &p.VndbData),
		field("ymgal_data", &p.YmgalData),
		field("custom_data", &p.Custom),
	}
}
