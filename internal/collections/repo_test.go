package collections

import (
	"context"
	"testing"

	"galhub/internal/games"
	"galhub/pkg/database"
	"galhub/pkg/models"
)

func newTestRepo(t *testing.T) (*Repo, []int64) {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gameRepo := games.NewRepo(db)
	var gameIDs []int64
	for _, g := range []models.Game{
		{Name: "Ever17", VndbID: "v17", IDType: models.IDTypeVndb},
		{Name: "Clannad", BgmID: "51", IDType: models.IDTypeBgm},
		{Name: "Steins;Gate", VndbID: "v2002", IDType: models.IDTypeVndb},
	} {
		id, err := gameRepo.Insert(context.Background(), &g)
		if err != nil {
			t.Fatalf("seed game %s: %v", g.Name, err)
		}
		gameIDs = append(gameIDs, id)
	}
	return NewRepo(db), gameIDs
}

func mustCreate(t *testing.T, r *Repo, name string, parentID *int64) int64 {
	t.Helper()
	id, err := r.Create(context.Background(), models.Collection{Name: name, ParentID: parentID})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return id
}

func TestCreateAndGet(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	id, err := r.Create(ctx, models.Collection{Name: "  Favorites  ", Icon: "star"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected a collection")
	}
	if got.Name != "Favorites" {
		t.Fatalf("name not trimmed: %q", got.Name)
	}
	if got.Icon != "star" {
		t.Fatalf("icon lost: %q", got.Icon)
	}
	if got.ParentID != nil {
		t.Fatalf("expected a root collection")
	}

	if _, err := r.Create(ctx, models.Collection{Name: "   "}); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}

	missing, err := r.Get(ctx, 9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id")
	}
}

func TestRootsAndChildren(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	group := mustCreate(t, r, "By Genre", nil)
	mustCreate(t, r, "Mystery", &group)
	mustCreate(t, r, "Romance", &group)
	other := mustCreate(t, r, "By Status", nil)

	roots, err := r.Roots(ctx)
	if err != nil {
		t.Fatalf("roots: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}

	children, err := r.Children(ctx, group)
	if err != nil {
		t.Fatalf("children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	for _, c := range children {
		if c.ParentID == nil || *c.ParentID != group {
			t.Fatalf("child %q has wrong parent", c.Name)
		}
	}

	empty, err := r.Children(ctx, other)
	if err != nil {
		t.Fatalf("children of empty group: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no children, got %d", len(empty))
	}
}

func TestUpdateTriState(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	group := mustCreate(t, r, "By Genre", nil)
	catID, err := r.Create(ctx, models.Collection{Name: "Mystery", ParentID: &group, Icon: "magnifier"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	// set name, clear icon, leave parent untouched
	updated, err := r.Update(ctx, catID, models.CollectionPatch{
		Name: models.Set("Thriller"),
		Icon: models.Clear[string](),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated == nil {
		t.Fatalf("expected updated row")
	}
	if updated.Name != "Thriller" {
		t.Fatalf("name not updated: %q", updated.Name)
	}
	if updated.Icon != "" {
		t.Fatalf("icon not cleared: %q", updated.Icon)
	}
	if updated.ParentID == nil || *updated.ParentID != group {
		t.Fatalf("parent should be unchanged")
	}

	// clearing parent_id promotes the category to a root group
	updated, err = r.Update(ctx, catID, models.CollectionPatch{
		ParentID: models.Clear[int64](),
	})
	if err != nil {
		t.Fatalf("clear parent: %v", err)
	}
	if updated.ParentID != nil {
		t.Fatalf("parent not cleared")
	}

	if _, err := r.Update(ctx, catID, models.CollectionPatch{Name: models.Clear[string]()}); err == nil {
		t.Fatalf("expected cleared name to be rejected")
	}

	missing, err := r.Update(ctx, 9999, models.CollectionPatch{Name: models.Set("Nope")})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id")
	}
}

func TestDeleteCascades(t *testing.T) {
	r, gameIDs := newTestRepo(t)
	ctx := context.Background()

	group := mustCreate(t, r, "By Genre", nil)
	cat := mustCreate(t, r, "Mystery", &group)
	if err := r.AddGame(ctx, gameIDs[0], cat, 0); err != nil {
		t.Fatalf("add game: %v", err)
	}

	deleted, err := r.Delete(ctx, group)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatalf("expected delete to report a removed row")
	}

	child, err := r.Get(ctx, cat)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if child != nil {
		t.Fatalf("child category should cascade away")
	}

	linked, err := r.IsGameIn(ctx, gameIDs[0], cat)
	if err != nil {
		t.Fatalf("is game in: %v", err)
	}
	if linked {
		t.Fatalf("game link should cascade away")
	}

	again, err := r.Delete(ctx, group)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if again {
		t.Fatalf("second delete should be a no-op")
	}
}

func TestGameLinks(t *testing.T) {
	r, gameIDs := newTestRepo(t)
	ctx := context.Background()

	group := mustCreate(t, r, "By Genre", nil)
	cat := mustCreate(t, r, "Mystery", &group)

	if err := r.AddGame(ctx, gameIDs[1], cat, 1); err != nil {
		t.Fatalf("add game: %v", err)
	}
	if err := r.AddGame(ctx, gameIDs[0], cat, 0); err != nil {
		t.Fatalf("add game: %v", err)
	}
	// re-adding only refreshes the sort order
	if err := r.AddGame(ctx, gameIDs[1], cat, 2); err != nil {
		t.Fatalf("re-add game: %v", err)
	}

	ids, err := r.GameIDs(ctx, cat)
	if err != nil {
		t.Fatalf("game ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 games, got %d", len(ids))
	}
	if ids[0] != gameIDs[0] || ids[1] != gameIDs[1] {
		t.Fatalf("games not in sort order: %v", ids)
	}

	count, err := r.CountGames(ctx, cat)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	removed, err := r.RemoveGame(ctx, gameIDs[0], cat)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatalf("expected removal")
	}
	removed, err = r.RemoveGame(ctx, gameIDs[0], cat)
	if err != nil {
		t.Fatalf("remove again: %v", err)
	}
	if removed {
		t.Fatalf("second removal should be a no-op")
	}
}

func TestSetGamesReplacesMembership(t *testing.T) {
	r, gameIDs := newTestRepo(t)
	ctx := context.Background()

	group := mustCreate(t, r, "By Genre", nil)
	cat := mustCreate(t, r, "Mystery", &group)

	if err := r.SetGames(ctx, cat, []int64{gameIDs[0], gameIDs[1]}); err != nil {
		t.Fatalf("set games: %v", err)
	}
	ids, err := r.GameIDs(ctx, cat)
	if err != nil {
		t.Fatalf("game ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != gameIDs[0] || ids[1] != gameIDs[1] {
		t.Fatalf("unexpected membership: %v", ids)
	}

	// drop the first game, reorder the survivor, add a new one
	if err := r.SetGames(ctx, cat, []int64{gameIDs[2], gameIDs[1]}); err != nil {
		t.Fatalf("replace games: %v", err)
	}
	ids, err = r.GameIDs(ctx, cat)
	if err != nil {
		t.Fatalf("game ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != gameIDs[2] || ids[1] != gameIDs[1] {
		t.Fatalf("membership not replaced in order: %v", ids)
	}

	if err := r.SetGames(ctx, cat, nil); err != nil {
		t.Fatalf("clear games: %v", err)
	}
	count, err := r.CountGames(ctx, cat)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty collection, got %d", count)
	}
}

func TestTreeAndGroupCount(t *testing.T) {
	r, gameIDs := newTestRepo(t)
	ctx := context.Background()

	group := mustCreate(t, r, "By Genre", nil)
	mystery := mustCreate(t, r, "Mystery", &group)
	romance := mustCreate(t, r, "Romance", &group)
	empty := mustCreate(t, r, "By Status", nil)

	if err := r.SetGames(ctx, mystery, []int64{gameIDs[0], gameIDs[2]}); err != nil {
		t.Fatalf("set mystery: %v", err)
	}
	// one game belongs to both categories of the same group
	if err := r.SetGames(ctx, romance, []int64{gameIDs[1], gameIDs[2]}); err != nil {
		t.Fatalf("set romance: %v", err)
	}

	groups, err := r.Tree(ctx)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	byID := map[int64]models.CollectionGroup{}
	for _, g := range groups {
		byID[g.ID] = g
	}
	genre := byID[group]
	if len(genre.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(genre.Categories))
	}
	for _, cat := range genre.Categories {
		if cat.GameCount != 2 {
			t.Fatalf("category %q count = %d, want 2", cat.Name, cat.GameCount)
		}
	}
	if got := byID[empty]; got.Categories == nil || len(got.Categories) != 0 {
		t.Fatalf("empty group should have an empty category slice")
	}

	// three distinct games even though one appears in both categories
	distinct, err := r.GroupGameCount(ctx, group)
	if err != nil {
		t.Fatalf("group count: %v", err)
	}
	if distinct != 3 {
		t.Fatalf("expected 3 distinct games, got %d", distinct)
	}
}
