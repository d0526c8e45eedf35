package models

import (
	"encoding/json"
	"testing"
)

func TestPatchDecodeTriState(t *testing.T) {
	payload := []byte(`{"name":"CLANNAD","summary":null,"score":7.5}`)

	var p GamePatch
	if err := json.Unmarshal(payload, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, ok := p.Name.Value(); !ok || v != "CLANNAD" {
		t.Fatalf("name should be Set to CLANNAD, got %q ok=%v", v, ok)
	}
	if !p.Summary.IsCleared() {
		t.Fatalf("explicit null must decode as Cleared")
	}
	if v, ok := p.Score.Value(); !ok || v != 7.5 {
		t.Fatalf("score should be Set to 7.5, got %v ok=%v", v, ok)
	}
	// absent keys stay Unchanged
	if !p.Developer.IsUnchanged() || !p.BgmData.IsUnchanged() {
		t.Fatalf("absent keys must remain Unchanged")
	}
}

func TestPatchEncodeSkipsUnchanged(t *testing.T) {
	p := GamePatch{
		Name: Set("Ever17"),
		Rank: Clear[int](),
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 keys, got %d: %s", len(out), b)
	}
	if string(out["name"]) != `"Ever17"` {
		t.Fatalf("unexpected name payload: %s", out["name"])
	}
	if string(out["rank"]) != "null" {
		t.Fatalf("Cleared must encode as null, got %s", out["rank"])
	}
}

func TestPatchRoundTrip(t *testing.T) {
	orig := GamePatch{
		Name:    Set("A Profile"),
		Summary: Clear[string](),
		Tags:    Set([]string{"ADV", "School"}),
		NSFW:    Set(true),
	}

	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got GamePatch
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v, _ := got.Name.Value(); v != "A Profile" {
		t.Fatalf("name lost in round trip: %q", v)
	}
	if !got.Summary.IsCleared() {
		t.Fatalf("Cleared state lost in round trip")
	}
	if tags, ok := got.Tags.Value(); !ok || len(tags) != 2 {
		t.Fatalf("tags lost in round trip: %v", tags)
	}
	if !got.Developer.IsUnchanged() {
		t.Fatalf("Unchanged must survive a round trip")
	}
}

func TestPatchDecodeSubRecord(t *testing.T) {
	payload := []byte(`{"vndb_data":{"name":"Ever17","score":8.1},"bgm_data":null}`)

	var p GamePatch
	if err := json.Unmarshal(payload, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rec, ok := p.VndbData.Value()
	if !ok || rec.Name != "Ever17" || rec.Score != 8.1 {
		t.Fatalf("unexpected sub-record: %+v ok=%v", rec, ok)
	}
	if !p.BgmData.IsCleared() {
		t.Fatalf("null sub-record must decode as Cleared")
	}
}

func TestGamePatchIsZero(t *testing.T) {
	var p GamePatch
	if !p.IsZero() {
		t.Fatalf("zero value must report IsZero")
	}
	p.Rank = Clear[int]()
	if p.IsZero() {
		t.Fatalf("a Cleared field is a change")
	}
}

func TestPatchDecodeRejectsWrongType(t *testing.T) {
	var p GamePatch
	if err := json.Unmarshal([]byte(`{"score":"high"}`), &p); err == nil {
		t.Fatalf("expected a type error for a string score")
	}
}
