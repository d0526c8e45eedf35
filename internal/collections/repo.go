package collections

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"galhub/pkg/models"
)

const collectionColumns = `
	id, name, parent_id, icon, sort_order, created_at, updated_at`

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) Create(ctx context.Context, c models.Collection) (int64, error) {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return 0, fmt.Errorf("create collection: name required")
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO collections (name, parent_id, icon, sort_order)
		VALUES (?, ?, ?, ?)
	`, name, c.ParentID, nullStr(c.Icon), c.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("create collection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create collection id: %w", err)
	}
	return id, nil
}

// Get returns the collection, or nil when the id does not exist.
func (r *Repo) Get(ctx context.Context, id int64) (*models.Collection, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT"+collectionColumns+" FROM collections WHERE id = ?", id)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}

// List returns every collection ordered by sort_order.
func (r *Repo) List(ctx context.Context) ([]models.Collection, error) {
	return r.query(ctx,
		"SELECT"+collectionColumns+" FROM collections ORDER BY sort_order, id")
}

// Roots returns the top-level groups.
func (r *Repo) Roots(ctx context.Context) ([]models.Collection, error) {
	return r.query(ctx,
		"SELECT"+collectionColumns+" FROM collections WHERE parent_id IS NULL ORDER BY sort_order, id")
}

// Children returns the categories directly under one group.
func (r *Repo) Children(ctx context.Context, parentID int64) ([]models.Collection, error) {
	return r.query(ctx,
		"SELECT"+collectionColumns+" FROM collections WHERE parent_id = ? ORDER BY sort_order, id",
		parentID)
}

// Update applies a tri-state patch. Clearing parent_id promotes the
// collection back to a root group. Returns the updated row, or nil when the
// id does not exist.
func (r *Repo) Update(ctx context.Context, id int64, patch models.CollectionPatch) (*models.Collection, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if v, ok := patch.Name.Value(); ok {
		name := strings.TrimSpace(v)
		if name == "" {
			return nil, fmt.Errorf("update collection: name cannot be empty")
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	} else if patch.Name.IsCleared() {
		return nil, fmt.Errorf("update collection: name cannot be cleared")
	}

	if v, ok := patch.ParentID.Value(); ok {
		sets = append(sets, "parent_id = ?")
		args = append(args, v)
	} else if patch.ParentID.IsCleared() {
		sets = append(sets, "parent_id = NULL")
	}

	if v, ok := patch.Icon.Value(); ok {
		sets = append(sets, "icon = ?")
		args = append(args, v)
	} else if patch.Icon.IsCleared() {
		sets = append(sets, "icon = NULL")
	}

	if v, ok := patch.SortOrder.Value(); ok {
		sets = append(sets, "sort_order = ?")
		args = append(args, v)
	} else if patch.SortOrder.IsCleared() {
		sets = append(sets, "sort_order = 0")
	}

	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE collections SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update collection rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.Get(ctx, id)
}

// Delete removes a collection; child categories and game links go with it
// via the cascading foreign keys.
func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete collection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete collection rows: %w", err)
	}
	return affected > 0, nil
}

func (r *Repo) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM collections WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("collection exists: %w", err)
	}
	return n > 0, nil
}

// AddGame links a game into a collection; re-adding an existing link only
// refreshes its sort order.
func (r *Repo) AddGame(ctx context.Context, gameID, collectionID int64, sortOrder int) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO game_collection_link (game_id, collection_id, sort_order)
		VALUES (?, ?, ?)
		ON CONFLICT(game_id, collection_id) DO UPDATE SET sort_order = excluded.sort_order
	`, gameID, collectionID, sortOrder)
	if err != nil {
		return fmt.Errorf("add game to collection: %w", err)
	}
	return nil
}

// RemoveGame unlinks a game from a collection. Returns false when no link
// existed.
func (r *Repo) RemoveGame(ctx context.Context, gameID, collectionID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM game_collection_link WHERE game_id = ? AND collection_id = ?",
		gameID, collectionID)
	if err != nil {
		return false, fmt.Errorf("remove game from collection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove game rows: %w", err)
	}
	return affected > 0, nil
}

// GameIDs returns the ids of the games in a collection, in link sort order.
func (r *Repo) GameIDs(ctx context.Context, collectionID int64) ([]int64, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT game_id FROM game_collection_link
		WHERE collection_id = ?
		ORDER BY sort_order, id
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("games in collection: %w", err)
	}
	defer rows.Close()

	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan link row: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) CountGames(ctx context.Context, collectionID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM game_collection_link WHERE collection_id = ?",
		collectionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count games in collection: %w", err)
	}
	return n, nil
}

func (r *Repo) IsGameIn(ctx context.Context, gameID, collectionID int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM game_collection_link WHERE game_id = ? AND collection_id = ?",
		gameID, collectionID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("game in collection: %w", err)
	}
	return n > 0, nil
}

// SetGames replaces a collection's membership with gameIDs, in that order.
// Links for games no longer listed are deleted, surviving links keep their
// row and get the new sort order, missing games are inserted. Runs in one
// transaction.
func (r *Repo) SetGames(ctx context.Context, collectionID int64, gameIDs []int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set games: begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id, game_id, sort_order FROM game_collection_link WHERE collection_id = ?",
		collectionID)
	if err != nil {
		return fmt.Errorf("set games: current links: %w", err)
	}

	type link struct {
		id        int64
		sortOrder int
	}
	current := map[int64]link{}
	for rows.Next() {
		var l link
		var gameID int64
		if err := rows.Scan(&l.id, &gameID, &l.sortOrder); err != nil {
			rows.Close()
			return fmt.Errorf("set games: scan link: %w", err)
		}
		current[gameID] = l
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("set games: rows err: %w", err)
	}
	rows.Close()

	keep := make(map[int64]struct{}, len(gameIDs))
	for _, id := range gameIDs {
		keep[id] = struct{}{}
	}
	for gameID, l := range current {
		if _, ok := keep[gameID]; !ok {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM game_collection_link WHERE id = ?", l.id); err != nil {
				return fmt.Errorf("set games: delete link: %w", err)
			}
		}
	}

	for order, gameID := range gameIDs {
		if l, ok := current[gameID]; ok {
			if l.sortOrder != order {
				if _, err := tx.ExecContext(ctx,
					"UPDATE game_collection_link SET sort_order = ? WHERE id = ?",
					order, l.id); err != nil {
					return fmt.Errorf("set games: reorder link: %w", err)
				}
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO game_collection_link (game_id, collection_id, sort_order)
			VALUES (?, ?, ?)
		`, gameID, collectionID, order); err != nil {
			return fmt.Errorf("set games: insert link: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set games: commit: %w", err)
	}
	return nil
}

// Tree returns the whole two-level organization at once: every root group
// with its categories and their game counts. Counts come from one grouped
// query rather than a query per category.
func (r *Repo) Tree(ctx context.Context) ([]models.CollectionGroup, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := map[int64]int{}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT collection_id, COUNT(*)
		FROM game_collection_link
		GROUP BY collection_id
	`)
	if err != nil {
		return nil, fmt.Errorf("collection counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	groups := []models.CollectionGroup{}
	children := map[int64][]models.CollectionWithCount{}
	for _, c := range all {
		if c.ParentID == nil {
			groups = append(groups, models.CollectionGroup{Collection: c})
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], models.CollectionWithCount{
			Collection: c,
			GameCount:  counts[c.ID],
		})
	}
	for i := range groups {
		cats := children[groups[i].ID]
		if cats == nil {
			cats = []models.CollectionWithCount{}
		}
		groups[i].Categories = cats
	}
	return groups, nil
}

// GroupGameCount counts the distinct games across every category of one
// group.
func (r *Repo) GroupGameCount(ctx context.Context, groupID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT l.game_id)
		FROM game_collection_link l
		JOIN collections c ON c.id = l.collection_id
		WHERE c.parent_id = ?
	`, groupID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("group game count: %w", err)
	}
	return n, nil
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]models.Collection, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	out := []models.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*models.Collection, error) {
	var (
		c      models.Collection
		parent sql.NullInt64
		icon   sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &parent, &icon, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	c.Icon = icon.String
	return &c, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
