package metadata

import (
	"reflect"
	"strings"

	"galhub/pkg/models"
)

// Number constrains the numeric scalar fields the diff engine handles.
type Number interface {
	~int | ~int32 | ~int64 | ~float64
}

// DiffString compares an edited string against the stored original. A nil
// original counts as empty, both sides are trimmed, and the result is
// Unchanged on equality, Cleared when the edit empties a previously set
// value, or Set with the new value.
func DiffString(current string, original *string) models.Patch[string] {
	cur := strings.TrimSpace(current)
	orig := ""
	if original != nil {
		orig = strings.TrimSpace(*original)
	}
	switch {
	case cur == orig:
		return models.Patch[string]{}
	case cur == "":
		return models.Clear[string]()
	default:
		return models.Set(cur)
	}
}

// DiffNumber treats a nil original as the zero value and an edited zero as an
// explicit clear.
func DiffNumber[T Number](current T, original *T) models.Patch[T] {
	var orig T
	if original != nil {
		orig = *original
	}
	switch {
	case current == orig:
		return models.Patch[T]{}
	case current == 0:
		return models.Clear[T]()
	default:
		return models.Set(current)
	}
}

// DiffStrings compares whole arrays: order-sensitive structural equality is
// Unchanged, an emptied array is Cleared, and any other difference ships the
// entire new array (no element-level patching).
func DiffStrings(current, original []string) models.Patch[[]string] {
	if original == nil {
		original = []string{}
	}
	if equalStrings(current, original) {
		return models.Patch[[]string]{}
	}
	if len(current) == 0 {
		return models.Clear[[]string]()
	}
	return models.Set(append([]string(nil), current...))
}

// DiffBool has no clear state distinct from false: unequal values always
// return the new value.
func DiffBool(current bool, original *bool) models.Patch[bool] {
	orig := false
	if original != nil {
		orig = *original
	}
	if current == orig {
		return models.Patch[bool]{}
	}
	return models.Set(current)
}

// DiffSourceData compares a freshly fetched source record against the stored
// one, for the batch refresh flow. A vanished record clears the column.
func DiffSourceData(current, original *models.SourceRecord) models.Patch[models.SourceRecord] {
	switch {
	case current == nil && original == nil:
		return models.Patch[models.SourceRecord]{}
	case current == nil:
		return models.Clear[models.SourceRecord]()
	case original == nil:
		return models.Set(*current)
	case reflect.DeepEqual(*current, *original):
		return models.Patch[models.SourceRecord]{}
	default:
		return models.Set(*current)
	}
}

// GameDraft holds the UI-edited field values a diff is computed from.
type GameDraft struct {
	BgmID   string
	VndbID  string
	YmgalID string

	Name         string
	NameCN       string
	Image        string
	Summary      string
	Developer    string
	Date         string
	Tags         []string
	Aliases      []string
	AllTitles    []string
	Score        float64
	Rank         int
	AverageHours float64
	NSFW         bool
}

// DiffGame builds the minimal update payload between edited values and the
// last persisted record. Only fields that actually changed appear in the
// patch; when the id set changed, id_type is recomputed and included too.
func DiffGame(draft GameDraft, original models.Game) models.GamePatch {
	p := models.GamePatch{
		BgmID:   DiffString(draft.BgmID, &original.BgmID),
		VndbID:  DiffString(draft.VndbID, &original.VndbID),
		YmgalID: DiffString(draft.YmgalID, &original.YmgalID),

		Name:         DiffString(draft.Name, &original.Name),
		NameCN:       DiffString(draft.NameCN, &original.NameCN),
		Image:        DiffString(draft.Image, &original.Image),
		Summary:      DiffString(draft.Summary, &original.Summary),
		Developer:    DiffString(draft.Developer, &original.Developer),
		Date:         DiffString(draft.Date, &original.Date),
		Tags:         DiffStrings(draft.Tags, original.Tags),
		Aliases:      DiffStrings(draft.Aliases, original.Aliases),
		AllTitles:    DiffStrings(draft.AllTitles, original.AllTitles),
		Score:        DiffNumber(draft.Score, &original.Score),
		Rank:         DiffNumber(draft.Rank, &original.Rank),
		AverageHours: DiffNumber(draft.AverageHours, &original.AverageHours),
		NSFW:         DiffBool(draft.NSFW, &original.NSFW),
	}

	idsChanged := !p.BgmID.IsUnchanged() || !p.VndbID.IsUnchanged() || !p.YmgalID.IsUnchanged()
	if idsChanged {
		ids := models.IDSet{
			BgmID:   strings.TrimSpace(draft.BgmID),
			VndbID:  strings.TrimSpace(draft.VndbID),
			YmgalID: strings.TrimSpace(draft.YmgalID),
		}
		idType := ids.Type()
		if idType == models.IDTypeUnknown && original.Custom != nil {
			idType = models.IDTypeCustom
		}
		if idType != original.IDType {
			p.IDType = models.Set(idType)
		}
	}
	return p
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
