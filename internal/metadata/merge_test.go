package metadata

import (
	"sort"
	"testing"

	"galhub/pkg/models"
)

func boolPtr(b bool) *bool { return &b }

func TestMergeZeroSources(t *testing.T) {
	g := Merge(MergeInput{})
	if g.IDType != models.IDTypeUnknown {
		t.Fatalf("expected unknown id_type, got %q", g.IDType)
	}
	if g.Name != "" || g.Summary != "" || len(g.Tags) != 0 {
		t.Fatalf("expected empty display fields, got %+v", g)
	}
	if g.BgmData != nil || g.VndbData != nil || g.YmgalData != nil {
		t.Fatalf("merge must never fabricate source sub-records")
	}
}

func TestMergeCustomOnlyGetsCustomType(t *testing.T) {
	g := Merge(MergeInput{Custom: &models.CustomData{Name: "My Game"}})
	if g.IDType != models.IDTypeCustom {
		t.Fatalf("expected custom id_type, got %q", g.IDType)
	}
	if g.Name != "My Game" {
		t.Fatalf("expected custom name applied, got %q", g.Name)
	}
}

func TestMergeIDTypeIndependentOfFetchSuccess(t *testing.T) {
	// Both ids known but only one fetch succeeded: still mixed, and the
	// failed source's sub-record stays absent.
	g := Merge(MergeInput{
		IDs:  models.IDSet{BgmID: "42", VndbID: "v9"},
		Vndb: &models.SourceRecord{Name: "Ever17"},
	})
	if g.IDType != models.IDTypeMixed {
		t.Fatalf("expected mixed, got %q", g.IDType)
	}
	if g.BgmData != nil {
		t.Fatalf("bgm sub-record must stay absent when bangumi returned nothing")
	}
	if g.VndbData == nil {
		t.Fatalf("vndb sub-record should be populated")
	}
}

func TestMergeBasicFieldPriorityMixed(t *testing.T) {
	g := Merge(MergeInput{
		IDs:   models.IDSet{BgmID: "42", VndbID: "v9", YmgalID: "501"},
		Bgm:   &models.SourceRecord{Name: "bgm name", Developer: "", NSFW: boolPtr(false)},
		Vndb:  &models.SourceRecord{Name: "vndb name", Developer: "vndb dev", Image: "vndb.jpg", NSFW: boolPtr(true)},
		Ymgal: &models.SourceRecord{Name: "ymgal name", Image: "ymgal.jpg", NameCN: "中文名"},
	})
	if g.Name != "bgm name" {
		t.Fatalf("bangumi should win the name for mixed records, got %q", g.Name)
	}
	// bangumi has no developer or image, so the next source fills them in
	if g.Developer != "vndb dev" {
		t.Fatalf("expected vndb developer as fallback, got %q", g.Developer)
	}
	if g.Image != "vndb.jpg" {
		t.Fatalf("expected vndb image as fallback, got %q", g.Image)
	}
	if g.NameCN != "中文名" {
		t.Fatalf("expected ymgal name_cn as last fallback, got %q", g.NameCN)
	}
	// bangumi's explicit false must win over vndb's true
	if g.NSFW {
		t.Fatalf("expected bangumi's nsfw=false to take priority")
	}
}

func TestMergeBasicFieldsFromSingleSourceOnly(t *testing.T) {
	// id_type is vndb; ymgal data arrived via name propagation. Basic fields
	// still come from the id'd source, while tags and aliases union across
	// everything.
	g := Merge(MergeInput{
		IDs:   models.IDSet{VndbID: "v17"},
		Vndb:  &models.SourceRecord{Name: "Ever17", Tags: []string{"Sci-Fi"}},
		Ymgal: &models.SourceRecord{Name: "ymgal title", Image: "ymgal.jpg", Tags: []string{"Drama"}},
	})
	if g.IDType != models.IDTypeVndb {
		t.Fatalf("expected vndb id_type, got %q", g.IDType)
	}
	if g.Name != "Ever17" {
		t.Fatalf("single-source basics must come from the id'd source, got %q", g.Name)
	}
	if g.Image != "" {
		t.Fatalf("image must not leak in from the propagated source, got %q", g.Image)
	}
	wantTags := map[string]bool{"Sci-Fi": true, "Drama": true}
	if len(g.Tags) != 2 || !wantTags[g.Tags[0]] || !wantTags[g.Tags[1]] {
		t.Fatalf("expected tag union across all sources, got %v", g.Tags)
	}
}

func TestMergeDatePriorityIgnoresIDType(t *testing.T) {
	g := Merge(MergeInput{
		IDs:  models.IDSet{YmgalID: "501"},
		Vndb: &models.SourceRecord{Date: "2004-04-28"},
		Ymgal: &models.SourceRecord{
			Name: "Clannad", Date: "2004-04-30",
		},
	})
	if g.Date != "2004-04-28" {
		t.Fatalf("date keeps bgm>vndb>ymgal priority even for single-source records, got %q", g.Date)
	}
}

func TestMergeSummaryPriorityContradictsBasics(t *testing.T) {
	g := Merge(MergeInput{
		IDs:   models.IDSet{BgmID: "42", YmgalID: "501"},
		Bgm:   &models.SourceRecord{Name: "bgm name", Summary: "bgm summary"},
		Ymgal: &models.SourceRecord{Name: "ymgal name", Summary: "ymgal summary"},
	})
	if g.Name != "bgm name" {
		t.Fatalf("basics keep bangumi first, got %q", g.Name)
	}
	if g.Summary != "ymgal summary" {
		t.Fatalf("summary must prefer ymgal when merging multiple sources, got %q", g.Summary)
	}
}

func TestMergeScoreAndSourceOnlyFields(t *testing.T) {
	g := Merge(MergeInput{
		IDs:  models.IDSet{BgmID: "42", VndbID: "v9"},
		Bgm:  &models.SourceRecord{Score: 8.1, Rank: 120},
		Vndb: &models.SourceRecord{Score: 7.9, AverageHours: 32.5, AllTitles: []string{"Ever17", "エバー17"}},
	})
	if g.Score != 8.1 {
		t.Fatalf("bangumi score wins, got %v", g.Score)
	}
	if g.Rank != 120 {
		t.Fatalf("rank comes from bangumi, got %d", g.Rank)
	}
	if g.AverageHours != 32.5 {
		t.Fatalf("average hours comes from vndb, got %v", g.AverageHours)
	}
	if len(g.AllTitles) != 2 {
		t.Fatalf("all_titles comes from vndb, got %v", g.AllTitles)
	}
}

func TestMergeScoreFallsBackToVndb(t *testing.T) {
	g := Merge(MergeInput{
		IDs:  models.IDSet{BgmID: "42", VndbID: "v9"},
		Bgm:  &models.SourceRecord{},
		Vndb: &models.SourceRecord{Score: 7.9},
	})
	if g.Score != 7.9 {
		t.Fatalf("expected vndb score when bangumi has none, got %v", g.Score)
	}
}

func TestMergeTagUnionDeduplicates(t *testing.T) {
	g := Merge(MergeInput{
		IDs:  models.IDSet{BgmID: "42", VndbID: "v9"},
		Bgm:  &models.SourceRecord{Tags: []string{"Drama", "Comedy"}},
		Vndb: &models.SourceRecord{Tags: []string{"Comedy", "Mystery"}},
	})
	got := append([]string(nil), g.Tags...)
	sort.Strings(got)
	want := []string{"Comedy", "Drama", "Mystery"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMergeCustomOverrides(t *testing.T) {
	g := Merge(MergeInput{
		IDs: models.IDSet{BgmID: "42"},
		Bgm: &models.SourceRecord{
			Name:    "catalog name",
			Summary: "catalog summary",
			Tags:    []string{"Drama"},
			NSFW:    boolPtr(true),
		},
		Custom: &models.CustomData{
			Name: "my name",
			NSFW: boolPtr(false),
			Tags: []string{"Favorite", "Drama"},
		},
	})
	if g.Name != "my name" {
		t.Fatalf("custom scalar must replace, got %q", g.Name)
	}
	if g.Summary != "catalog summary" {
		t.Fatalf("unset custom scalar must not clobber, got %q", g.Summary)
	}
	if g.NSFW {
		t.Fatalf("custom nsfw=false must replace the catalog value")
	}
	if len(g.Tags) != 2 {
		t.Fatalf("custom tags merge additively without duplicates, got %v", g.Tags)
	}
	if g.IDType != models.IDTypeBgm {
		t.Fatalf("custom data must not change a sourced id_type, got %q", g.IDType)
	}
}
