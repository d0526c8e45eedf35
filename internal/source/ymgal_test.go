package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestYmgal(t *testing.T, handler http.HandlerFunc) *Ymgal {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := NewYmgal()
	s.BaseURL = srv.URL
	return s
}

func TestYmgalFetchByIDMapsArchive(t *testing.T) {
	s := newTestYmgal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/open/archive" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("gid") != "501" {
			t.Errorf("unexpected gid %q", r.URL.Query().Get("gid"))
		}
		w.Write([]byte(`{"success": true, "code": 0, "data": {"game": {
			"id": 501,
			"name": "Summer Pockets",
			"chineseName": "夏日口袋",
			"introduction": "an island story",
			"releaseDate": "2018-06-29",
			"mainImg": "https://img/sp.jpg",
			"restricted": false,
			"developerName": "Key",
			"extensionName": [{"name": "サマポケ"}]
		}}}`))
	})

	rec, err := s.FetchByID(context.Background(), "501")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rec.Name != "Summer Pockets" || rec.NameCN != "夏日口袋" {
		t.Fatalf("names not mapped: %+v", rec)
	}
	if rec.Developer != "Key" || rec.Date != "2018-06-29" {
		t.Fatalf("fields not mapped: %+v", rec)
	}
	if len(rec.Aliases) != 1 || rec.Aliases[0] != "サマポケ" {
		t.Fatalf("extension names not mapped: %v", rec.Aliases)
	}
	if rec.NSFW == nil || *rec.NSFW {
		t.Fatalf("restricted=false must map to nsfw=false")
	}
}

func TestYmgalMissingArchiveCode(t *testing.T) {
	s := newTestYmgal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "code": 614, "msg": "archive does not exist"}`))
	})

	_, err := s.FetchByID(context.Background(), "999999")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found for code 614, got %v", err)
	}
}

func TestYmgalSearchGame(t *testing.T) {
	s := newTestYmgal(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/open/archive/search-game" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("mode") != "list" || q.Get("keyword") != "Summer" || q.Get("pageSize") != "3" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"success": true, "code": 0, "data": {"result": [
			{"id": 501, "name": "Summer Pockets"},
			{"id": 502, "name": "Summer Pockets RB"}
		]}}`))
	})

	recs, err := s.FetchByName(context.Background(), "Summer", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "Summer Pockets" {
		t.Fatalf("unexpected results: %+v", recs)
	}
}

func TestYmgalEnvelopeFailure(t *testing.T) {
	s := newTestYmgal(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "code": 500, "msg": "internal"}`))
	})

	_, err := s.FetchByName(context.Background(), "x", 1)
	if err == nil || IsNotFound(err) {
		t.Fatalf("expected a remote-status error, got %v", err)
	}
}
