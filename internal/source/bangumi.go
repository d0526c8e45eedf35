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
	bangumiName = "bangumi"
	bangumiBase = "https://api.bgm.tv"

	// subject type 4 = game in the bangumi v0 API
	bangumiTypeGame = 4
)

// Bangumi fetches game subjects from the bangumi v0 API. The API requires a
// personal access token; the provider is injected so resolution logic can be
// tested without process-wide state.
type Bangumi struct {
	BaseURL   string
	Client    *http.Client
	Tokens    TokenProvider
	UserAgent string
}

func NewBangumi(tokens TokenProvider) *Bangumi {
	return &Bangumi{
		BaseURL:   bangumiBase,
		Client:    &http.Client{Timeout: 12 * time.Second},
		Tokens:    tokens,
		UserAgent: "galhub/1.0",
	}
}

func (s *Bangumi) Name() string { return bangumiName }

type bgmSubject struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	NameCN  string `json:"name_cn"`
	Summary string `json:"summary"`
	Date    string `json:"date"`
	NSFW    bool   `json:"nsfw"`
	Images  struct {
		Large string `json:"large"`
	} `json:"images"`
	Rating struct {
		Score float64 `json:"score"`
		Rank  int     `json:"rank"`
	} `json:"rating"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Infobox []bgmInfoboxEntry `json:"infobox"`
}

// bgmInfoboxEntry values are either a string or a list of {v: string}.
type bgmInfoboxEntry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (s *Bangumi) FetchByID(ctx context.Context, id string) (*models.SourceRecord, error) {
	body, err := s.doAuthorized(ctx, http.MethodGet, "/v0/subjects/"+id, nil)
	if err != nil {
		return nil, err
	}

	var subject bgmSubject
	if err := json.Unmarshal(body, &subject); err != nil {
		return nil, newError(bangumiName, KindDecode, "", fmt.Errorf("decode subject: %w", err))
	}
	rec := subjectToRecord(subject)
	return &rec, nil
}

func (s *Bangumi) FetchByName(ctx context.Context, name string, limit int) ([]models.SourceRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	payload, err := json.Marshal(map[string]any{
		"keyword": name,
		"filter":  map[string]any{"type": []int{bangumiTypeGame}},
	})
	if err != nil {
		return nil, fmt.Errorf("bangumi: marshal search: %w", err)
	}

	path := fmt.Sprintf("/v0/search/subjects?limit=%d", limit)
	body, err := s.doAuthorized(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []bgmSubject `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newError(bangumiName, KindDecode, "", fmt.Errorf("decode search: %w", err))
	}

	out := make([]models.SourceRecord, 0, len(resp.Data))
	for _, subject := range resp.Data {
		out = append(out, subjectToRecord(subject))
	}
	return out, nil
}

// doAuthorized issues one request with the current token and retries exactly
// once with a refreshed token when the remote rejects the credential.
func (s *Bangumi) doAuthorized(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	body, status, err := s.do(ctx, method, path, payload, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if cache, ok := s.Tokens.(interface{ Invalidate() }); ok {
			cache.Invalidate()
			if token, err = s.token(ctx); err != nil {
				return nil, err
			}
			body, status, err = s.do(ctx, method, path, payload, token)
			if err != nil {
				return nil, err
			}
		}
	}

	switch {
	case status == http.StatusNotFound:
		return nil, newError(bangumiName, KindNotFound, "subject not found", nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, newError(bangumiName, KindRemoteStatus, fmt.Sprintf("token rejected (status %d)", status), nil)
	case status != http.StatusOK:
		return nil, newError(bangumiName, KindRemoteStatus, fmt.Sprintf("status %d: %s", status, truncate(body, 200)), nil)
	}
	return body, nil
}

func (s *Bangumi) do(ctx context.Context, method, path string, payload []byte, token string) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("bangumi: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", s.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, newError(bangumiName, KindNetwork, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, newError(bangumiName, KindNetwork, "", fmt.Errorf("read body: %w", err))
	}
	return body, resp.StatusCode, nil
}

func (s *Bangumi) token(ctx context.Context) (string, error) {
	if s.Tokens == nil {
		return "", newError(bangumiName, KindMissingCredential, "no token provider configured", nil)
	}
	token, err := s.Tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("bangumi: %w", err)
	}
	if token == "" {
		return "", newError(bangumiName, KindMissingCredential, "access token not set", nil)
	}
	return token, nil
}

func subjectToRecord(subject bgmSubject) models.SourceRecord {
	nsfw := subject.NSFW
	rec := models.SourceRecord{
		Name:    subject.Name,
		NameCN:  subject.NameCN,
		Summary: subject.Summary,
		Date:    subject.Date,
		Image:   subject.Images.Large,
		Score:   subject.Rating.Score,
		Rank:    subject.Rating.Rank,
		NSFW:    &nsfw,
	}
	for _, tag := range subject.Tags {
		if tag.Name != "" {
			rec.Tags = append(rec.Tags, tag.Name)
		}
	}
	for _, entry := range subject.Infobox {
		switch entry.Key {
		case "开发", "游戏开发商", "开发商":
			if rec.Developer == "" {
				rec.Developer = infoboxString(entry.Value)
			}
		case "别名":
			rec.Aliases = append(rec.Aliases, infoboxList(entry.Value)...)
		}
	}
	return rec
}

func infoboxString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if items := infoboxList(raw); len(items) > 0 {
		return items[0]
	}
	return ""
}

func infoboxList(raw json.RawMessage) []string {
	var items []struct {
		V string `json:"v"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.V != "" {
			out = append(out, item.V)
		}
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
