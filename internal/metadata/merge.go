package metadata

import "galhub/pkg/models"

// MergeInput carries everything the merge engine works from: which ids are
// known (successful or not), whichever per-source records the resolver
// gathered, and the user's custom overrides.
type MergeInput struct {
	IDs    models.IDSet
	Bgm    *models.SourceRecord
	Vndb   *models.SourceRecord
	Ymgal  *models.SourceRecord
	Custom *models.CustomData
}

// Merge flattens 1-3 per-source records plus optional custom overrides into
// one canonical game. It never fails: with zero records it returns a game
// with empty display fields, and it never fabricates a source sub-record.
//
// id_type is computed from which ids are known, independent of which fetches
// actually succeeded; an id can be linked while its fetch failed.
func Merge(in MergeInput) models.Game {
	idType := in.IDs.Type()
	if idType == models.IDTypeUnknown && in.Custom != nil {
		idType = models.IDTypeCustom
	}

	g := models.Game{
		BgmID:   in.IDs.BgmID,
		VndbID:  in.IDs.VndbID,
		YmgalID: in.IDs.YmgalID,
		IDType:  idType,

		BgmData:   in.Bgm,
		VndbData:  in.Vndb,
		YmgalData: in.Ymgal,
		Custom:    in.Custom,
	}

	// Basic fields: for mixed records, bangumi wins over vndb over ymgal;
	// for a single-source id_type they come from that source alone.
	basics := basicPriority(idType, in)
	g.Name = firstString(basics, func(r *models.SourceRecord) string { return r.Name })
	g.NameCN = firstString(basics, func(r *models.SourceRecord) string { return r.NameCN })
	g.Image = firstString(basics, func(r *models.SourceRecord) string { return r.Image })
	g.Developer = firstString(basics, func(r *models.SourceRecord) string { return r.Developer })
	if nsfw := firstBool(basics); nsfw != nil {
		g.NSFW = *nsfw
	}

	// Date keeps its own fixed priority regardless of id_type.
	g.Date = firstString([]*models.SourceRecord{in.Bgm, in.Vndb, in.Ymgal},
		func(r *models.SourceRecord) string { return r.Date })

	// Summary deliberately contradicts the basic-field order: ymgal wins when
	// more than one source produced data. Kept as a separate rule so existing
	// records keep displaying the same text.
	if countRecords(in) > 1 {
		g.Summary = firstString([]*models.SourceRecord{in.Ymgal, in.Bgm, in.Vndb},
			func(r *models.SourceRecord) string { return r.Summary })
	} else {
		g.Summary = firstString(basics, func(r *models.SourceRecord) string { return r.Summary })
	}

	// Score: bangumi over vndb (ymgal has no score). Rank is bangumi-only;
	// average hours and the full title list are vndb-only.
	if in.Bgm != nil && in.Bgm.Score != 0 {
		g.Score = in.Bgm.Score
	} else if in.Vndb != nil {
		g.Score = in.Vndb.Score
	}
	if in.Bgm != nil {
		g.Rank = in.Bgm.Rank
	}
	if in.Vndb != nil {
		g.AverageHours = in.Vndb.AverageHours
		g.AllTitles = append([]string(nil), in.Vndb.AllTitles...)
	}

	// Tags and aliases are a set union across every source that returned
	// data; arrival order of the sources must not matter beyond first-seen
	// ordering within the union.
	for _, r := range []*models.SourceRecord{in.Bgm, in.Vndb, in.Ymgal} {
		if r == nil {
			continue
		}
		g.Tags = unionStrings(g.Tags, r.Tags)
		g.Aliases = unionStrings(g.Aliases, r.Aliases)
	}

	applyCustom(&g, in.Custom)
	return g
}

// basicPriority picks the lookup order for the basic display fields.
func basicPriority(idType models.IDType, in MergeInput) []*models.SourceRecord {
	switch idType {
	case models.IDTypeBgm:
		return []*models.SourceRecord{in.Bgm}
	case models.IDTypeVndb:
		return []*models.SourceRecord{in.Vndb}
	case models.IDTypeYmgal:
		return []*models.SourceRecord{in.Ymgal}
	default:
		return []*models.SourceRecord{in.Bgm, in.Vndb, in.Ymgal}
	}
}

// applyCustom overlays user overrides last: scalars replace, arrays merge in.
func applyCustom(g *models.Game, c *models.CustomData) {
	if c == nil {
		return
	}
	if c.Name != "" {
		g.Name = c.Name
	}
	if c.Image != "" {
		g.Image = c.Image
	}
	if c.Summary != "" {
		g.Summary = c.Summary
	}
	if c.Developer != "" {
		g.Developer = c.Developer
	}
	if c.Date != "" {
		g.Date = c.Date
	}
	if c.NSFW != nil {
		g.NSFW = *c.NSFW
	}
	g.Tags = unionStrings(g.Tags, c.Tags)
	g.Aliases = unionStrings(g.Aliases, c.Aliases)
}

func countRecords(in MergeInput) int {
	n := 0
	for _, r := range []*models.SourceRecord{in.Bgm, in.Vndb, in.Ymgal} {
		if r != nil {
			n++
		}
	}
	return n
}

func firstString(records []*models.SourceRecord, pick func(*models.SourceRecord) string) string {
	for _, r := range records {
		if r == nil {
			continue
		}
		if v := pick(r); v != "" {
			return v
		}
	}
	return ""
}

func firstBool(records []*models.SourceRecord) *bool {
	for _, r := range records {
		if r != nil && r.NSFW != nil {
			return r.NSFW
		}
	}
	return nil
}

// unionStrings appends the members of extra that base does not already hold.
func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, v := range base {
		seen[v] = struct{}{}
	}
	out := base
	for _, v := range extra {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
