package games

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"galhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const gameColumns = `
	id, bgm_id, vndb_id, ymgal_id, id_type,
	name, name_cn, image, summary, developer, date,
	score, rank, average_hours, nsfw,
	tags, aliases, all_titles,
	bgm_data, vndb_data, ymgal_data, custom_data,
	created_at, updated_at`

// sortColumns whitelists user-supplied sort keys.
var sortColumns = map[string]string{
	"name":       "name",
	"date":       "date",
	"score":      "score",
	"rank":       "rank",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type ListOptions struct {
	Sort   string
	Order  string // asc / desc
	Search string // substring match on name / name_cn
	Limit  int
	Offset int
}

func (r *Repo) Insert(ctx context.Context, g *models.Game) (int64, error) {
	tags, err := marshalJSON(g.Tags)
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	aliases, err := marshalJSON(g.Aliases)
	if err != nil {
		return 0, fmt.Errorf("marshal aliases: %w", err)
	}
	titles, err := marshalJSON(g.AllTitles)
	if err != nil {
		return 0, fmt.Errorf("marshal all_titles: %w", err)
	}
	bgm, err := marshalJSON(g.BgmData)
	if err != nil {
		return 0, fmt.Errorf("marshal bgm_data: %w", err)
	}
	vndb, err := marshalJSON(g.VndbData)
	if err != nil {
		return 0, fmt.Errorf("marshal vndb_data: %w", err)
	}
	ymgal, err := marshalJSON(g.YmgalData)
	if err != nil {
		return 0, fmt.Errorf("marshal ymgal_data: %w", err)
	}
	custom, err := marshalJSON(g.Custom)
	if err != nil {
		return 0, fmt.Errorf("marshal custom_data: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO games (
			bgm_id, vndb_id, ymgal_id, id_type,
			name, name_cn, image, summary, developer, date,
			score, rank, average_hours, nsfw,
			tags, aliases, all_titles,
			bgm_data, vndb_data, ymgal_data, custom_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullStr(g.BgmID), nullStr(g.VndbID), nullStr(g.YmgalID), string(g.IDType),
		g.Name, nullStr(g.NameCN), nullStr(g.Image), nullStr(g.Summary), nullStr(g.Developer), nullStr(g.Date),
		nullFloat(g.Score), nullInt(int64(g.Rank)), nullFloat(g.AverageHours), g.NSFW,
		tags, aliases, titles,
		bgm, vndb, ymgal, custom,
	)
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert game id: %w", err)
	}
	return id, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*models.Game, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT`+gameColumns+`
		FROM games
		WHERE id = ?
	`, id)

	g, err := scanGame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

// FindBySourceIDs returns the first stored game sharing any source id with
// ids, used to reject duplicate imports.
func (r *Repo) FindBySourceIDs(ctx context.Context, ids models.IDSet) (*models.Game, error) {
	if ids.Empty() {
		return nil, nil
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT`+gameColumns+`
		FROM games
		WHERE (bgm_id = ? AND ? != '')
		   OR (vndb_id = ? AND ? != '')
		   OR (ymgal_id = ? AND ? != '')
		LIMIT 1
	`, ids.BgmID, ids.BgmID, ids.VndbID, ids.VndbID, ids.YmgalID, ids.YmgalID)

	g, err := scanGame(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find by source ids: %w", err)
	}
	return g, nil
}

func (r *Repo) List(ctx context.Context, opts ListOptions) ([]models.Game, int, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	col, ok := sortColumns[opts.Sort]
	if !ok {
		col = "created_at"
	}
	order := "ASC"
	if strings.EqualFold(opts.Order, "desc") {
		order = "DESC"
	}

	where := ""
	args := []any{}
	if opts.Search != "" {
		where = "WHERE name LIKE ? OR name_cn LIKE ?"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM games "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count games: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT%s FROM games %s ORDER BY %s %s LIMIT ? OFFSET ?",
		gameColumns, where, col, order,
	)
	rows, err := r.DB.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	out := make([]models.Game, 0, opts.Limit)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan game row: %w", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// AllSourceIDs returns id and source ids for every stored game, for batch
// refresh jobs that re-resolve each title.
func (r *Repo) AllSourceIDs(ctx context.Context) ([]models.Game, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, bgm_id, vndb_id, ymgal_id, id_type
		FROM games
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list source ids: %w", err)
	}
	defer rows.Close()

	var out []models.Game
	for rows.Next() {
		var g models.Game
		var bgm, vndb, ymgal sql.NullString
		var idType string
		if err := rows.Scan(&g.ID, &bgm, &vndb, &ymgal, &idType); err != nil {
			return nil, fmt.Errorf("scan id row: %w", err)
		}
		g.BgmID, g.VndbID, g.YmgalID = bgm.String, vndb.String, ymgal.String
		g.IDType = models.IDType(idType)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Update applies a tri-state patch: Unchanged fields keep their stored value,
// Cleared fields go to NULL (or the column's empty default), Set fields are
// overwritten. Returns the updated row, or nil when the id does not exist.
func (r *Repo) Update(ctx context.Context, id int64, patch models.GamePatch) (*models.Game, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	setNull := func(col string) {
		sets = append(sets, col+" = NULL")
	}
	str := func(col string, p models.Patch[string]) {
		if v, ok := p.Value(); ok {
			set(col, v)
		} else if p.IsCleared() {
			setNull(col)
		}
	}

	str("bgm_id", patch.BgmID)
	str("vndb_id", patch.VndbID)
	str("ymgal_id", patch.YmgalID)

	if v, ok := patch.IDType.Value(); ok {
		set("id_type", string(v))
	} else if patch.IDType.IsCleared() {
		set("id_type", string(models.IDTypeUnknown))
	}

	if v, ok := patch.Name.Value(); ok {
		set("name", v)
	} else if patch.Name.IsCleared() {
		set("name", "")
	}
	str("name_cn", patch.NameCN)
	str("image", patch.Image)
	str("summary", patch.Summary)
	str("developer", patch.Developer)
	str("date", patch.Date)

	if v, ok := patch.Score.Value(); ok {
		set("score", v)
	} else if patch.Score.IsCleared() {
		setNull("score")
	}
	if v, ok := patch.Rank.Value(); ok {
		set("rank", v)
	} else if patch.Rank.IsCleared() {
		setNull("rank")
	}
	if v, ok := patch.AverageHours.Value(); ok {
		set("average_hours", v)
	} else if patch.AverageHours.IsCleared() {
		setNull("average_hours")
	}
	if v, ok := patch.NSFW.Value(); ok {
		set("nsfw", v)
	} else if patch.NSFW.IsCleared() {
		set("nsfw", false)
	}

	if err := applyJSONPatch("tags", patch.Tags, set, setNull); err != nil {
		return nil, err
	}
	if err := applyJSONPatch("aliases", patch.Aliases, set, setNull); err != nil {
		return nil, err
	}
	if err := applyJSONPatch("all_titles", patch.AllTitles, set, setNull); err != nil {
		return nil, err
	}
	if err := applyJSONPatch("bgm_data", patch.BgmData, set, setNull); err != nil {
		return nil, err
	}
	if err := applyJSONPatch("vndb_data", patch.VndbData, set, setNull); err != nil {
		return nil, err
	}
	if err := applyJSONPatch("ymgal_data", patch.YmgalData, set, setNull); err != nil {
		return nil, err
	}
	if err := applyJSONPatch("custom_data", patch.Custom, set, setNull); err != nil {
		return nil, err
	}

	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE games SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update game: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update game rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.Get(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete game: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// applyJSONPatch translates a tri-state patch on a JSON text column into a
// SET clause: Set marshals the value, Cleared writes NULL, Unchanged is a
// no-op.
func applyJSONPatch[T any](col string, p models.Patch[T], set func(string, any), setNull func(string)) error {
	if v, ok := p.Value(); ok {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", col, err)
		}
		set(col, string(b))
	} else if p.IsCleared() {
		setNull(col)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*models.Game, error) {
	var g models.Game
	var (
		bgmID, vndbID, ymgalID       sql.NullString
		idType                       string
		nameCN, image, summary       sql.NullString
		developer, date              sql.NullString
		score, averageHours          sql.NullFloat64
		rank                         sql.NullInt64
		tags, aliases, titles        sql.NullString
		bgmData, vndbData, ymgalData sql.NullString
		customData                   sql.NullString
	)

	if err := row.Scan(
		&g.ID, &bgmID, &vndbID, &ymgalID, &idType,
		&g.Name, &nameCN, &image, &summary, &developer, &date,
		&score, &rank, &averageHours, &g.NSFW,
		&tags, &aliases, &titles,
		&bgmData, &vndbData, &ymgalData, &customData,
		&g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}

	g.BgmID, g.VndbID, g.YmgalID = bgmID.String, vndbID.String, ymgalID.String
	g.IDType = models.IDType(idType)
	g.NameCN = nameCN.String
	g.Image = image.String
	g.Summary = summary.String
	g.Developer = developer.String
	g.Date = date.String
	g.Score = score.Float64
	g.Rank = int(rank.Int64)
	g.AverageHours = averageHours.Float64

	if err := unmarshalJSON(tags, &g.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := unmarshalJSON(aliases, &g.Aliases); err != nil {
		return nil, fmt.Errorf("decode aliases: %w", err)
	}
	if err := unmarshalJSON(titles, &g.AllTitles); err != nil {
		return nil, fmt.Errorf("decode all_titles: %w", err)
	}
	if err := unmarshalJSON(bgmData, &g.BgmData); err != nil {
		return nil, fmt.Errorf("decode bgm_data: %w", err)
	}
	if err := unmarshalJSON(vndbData, &g.VndbData); err != nil {
		return nil, fmt.Errorf("decode vndb_data: %w", err)
	}
	if err := unmarshalJSON(ymgalData, &g.YmgalData); err != nil {
		return nil, fmt.Errorf("decode ymgal_data: %w", err)
	}
	if err := unmarshalJSON(customData, &g.Custom); err != nil {
		return nil, fmt.Errorf("decode custom_data: %w", err)
	}
	return &g, nil
}

func marshalJSON(v any) (any, error) {
	if isNilish(v) {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func isNilish(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []string:
		return len(t) == 0
	case *models.SourceRecord:
		return t == nil
	case *models.CustomData:
		return t == nil
	default:
		return false
	}
}

func unmarshalJSON(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
