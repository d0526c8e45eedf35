package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"galhub/pkg/models"
)

const (
	ymgalName = "ymgal"
	ymgalBase = "https://www.ymgal.games"
)

// Ymgal fetches game archives from the YMGal open API. Ids are the numeric
// part of the site's ga-prefixed identifiers; no credential needed.
type Ymgal struct {
	BaseURL string
	Client  *http.Client
}

func NewYmgal() *Ymgal {
	return &Ymgal{
		BaseURL: ymgalBase,
		Client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (s *Ymgal) Name() string { return ymgalName }

type ymgalGame struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ChineseName   string `json:"chineseName"`
	Introduction  string `json:"introduction"`
	ReleaseDate   string `json:"releaseDate"`
	MainImg       string `json:"mainImg"`
	Restricted    bool   `json:"restricted"`
	DeveloperName string `json:"developerName"`
	ExtensionName []struct {
		Name string `json:"name"`
	} `json:"extensionName"`
}

type ymgalEnvelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (s *Ymgal) FetchByID(ctx context.Context, id string) (*models.SourceRecord, error) {
	data, err := s.get(ctx, "/open/archive", url.Values{"gid": {id}})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Game ymgalGame `json:"game"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, newError(ymgalName, KindDecode, "", fmt.Errorf("decode archive: %w", err))
	}
	if payload.Game.ID == 0 && payload.Game.Name == "" {
		return nil, newError(ymgalName, KindNotFound, "no archive with id "+id, nil)
	}
	rec := ymgalToRecord(payload.Game)
	return &rec, nil
}

func (s *Ymgal) FetchByName(ctx context.Context, name string, limit int) ([]models.SourceRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	data, err := s.get(ctx, "/open/archive/search-game", url.Values{
		"mode":     {"list"},
		"keyword":  {name},
		"pageNum":  {"1"},
		"pageSize": {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Result []ymgalGame `json:"result"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, newError(ymgalName, KindDecode, "", fmt.Errorf("decode search: %w", err))
	}

	out := make([]models.SourceRecord, 0, len(payload.Result))
	for _, game := range payload.Result {
		out = append(out, ymgalToRecord(game))
	}
	return out, nil
}

func (s *Ymgal) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ymgal: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json;charset=utf-8")
	req.Header.Set("version", "1")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, newError(ymgalName, KindNetwork, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ymgalName, KindNetwork, "", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, newError(ymgalName, KindNotFound, "not found", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(ymgalName, KindRemoteStatus, fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(body, 200)), nil)
	}

	var env ymgalEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newError(ymgalName, KindDecode, "", fmt.Errorf("decode envelope: %w", err))
	}
	if !env.Success {
		if env.Code == 614 { // archive does not exist
			return nil, newError(ymgalName, KindNotFound, env.Msg, nil)
		}
		return nil, newError(ymgalName, KindRemoteStatus, fmt.Sprintf("code %d: %s", env.Code, env.Msg), nil)
	}
	return env.Data, nil
}

func ymgalToRecord(game ymgalGame) models.SourceRecord {
	nsfw := game.Restricted
	rec := models.SourceRecord{
		Name:      game.Name,
		NameCN:    game.ChineseName,
		Summary:   game.Introduction,
		Date:      game.ReleaseDate,
		Image:     game.MainImg,
		Developer: game.DeveloperName,
		NSFW:      &nsfw,
	}
	for _, ext := range game.ExtensionName {
		if ext.Name != "" {
			rec.Aliases = append(rec.Aliases, ext.Name)
		}
	}
	return rec
}
