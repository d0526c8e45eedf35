package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"galhub/pkg/models"
)

const (
	vndbName = "vndb"
	vndbBase = "https://api.vndb.org/kana"

	// one field list for both id and name queries; the kana API returns the
	// same shape either way
	vndbFields = "title, titles{lang,title,official,main}, aliases, description, released, image{url,sexual}, rating, length_minutes, tags{name,rating}, developers{name}"
)

// VNDB fetches visual novels from the VNDB kana API. No credential needed.
type VNDB struct {
	BaseURL string
	Client  *http.Client
}

func NewVNDB() *VNDB {
	return &VNDB{
		BaseURL: vndbBase,
		Client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (s *VNDB) Name() string { return vndbName }

type vndbVN struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Titles []struct {
		Lang     string `json:"lang"`
		Title    string `json:"title"`
		Official bool   `json:"official"`
		Main     bool   `json:"main"`
	} `json:"titles"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Released    string   `json:"released"`
	Image       *struct {
		URL    string  `json:"url"`
		Sexual float64 `json:"sexual"`
	} `json:"image"`
	Rating        float64 `json:"rating"`
	LengthMinutes float64 `json:"length_minutes"`
	Tags          []struct {
		Name   string  `json:"name"`
		Rating float64 `json:"rating"`
	} `json:"tags"`
	Developers []struct {
		Name string `json:"name"`
	} `json:"developers"`
}

func (s *VNDB) FetchByID(ctx context.Context, id string) (*models.SourceRecord, error) {
	results, err := s.query(ctx, []any{"id", "=", id}, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, newError(vndbName, KindNotFound, "no visual novel with id "+id, nil)
	}
	return &results[0], nil
}

func (s *VNDB) FetchByName(ctx context.Context, name string, limit int) ([]models.SourceRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.query(ctx, []any{"search", "=", name}, limit)
}

func (s *VNDB) query(ctx context.Context, filters []any, limit int) ([]models.SourceRecord, error) {
	payload, err := json.Marshal(map[string]any{
		"filters": filters,
		"fields":  vndbFields,
		"results": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("vndb: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/vn", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("vndb: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, newError(vndbName, KindNetwork, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(vndbName, KindNetwork, "", fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, newError(vndbName, KindNotFound, "not found", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newError(vndbName, KindRemoteStatus, fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(body, 200)), nil)
	}

	var parsed struct {
		Results []vndbVN `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, newError(vndbName, KindDecode, "", fmt.Errorf("decode results: %w", err))
	}

	out := make([]models.SourceRecord, 0, len(parsed.Results))
	for _, vn := range parsed.Results {
		out = append(out, vnToRecord(vn))
	}
	return out, nil
}

func vnToRecord(vn vndbVN) models.SourceRecord {
	rec := models.SourceRecord{
		Name:    vn.Title,
		Aliases: vn.Aliases,
		Summary: vn.Description,
		Date:    vn.Released,
		// kana ratings run 10-100
		Score: vn.Rating / 10,
		// length is reported in minutes
		AverageHours: vn.LengthMinutes / 60,
	}
	for _, title := range vn.Titles {
		if title.Title == "" {
			continue
		}
		rec.AllTitles = append(rec.AllTitles, title.Title)
		if rec.NameCN == "" && (title.Lang == "zh-Hans" || title.Lang == "zh-Hant") {
			rec.NameCN = title.Title
		}
	}
	for _, tag := range vn.Tags {
		if tag.Name != "" {
			rec.Tags = append(rec.Tags, tag.Name)
		}
	}
	if len(vn.Developers) > 0 {
		rec.Developer = vn.Developers[0].Name
	}
	if vn.Image != nil {
		rec.Image = vn.Image.URL
		nsfw := vn.Image.Sexual >= 1
		rec.NSFW = &nsfw
	}
	return rec
}
