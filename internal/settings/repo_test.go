package settings

import (
	"context"
	"testing"
	"time"

	"galhub/internal/source"
	"galhub/pkg/database"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepo(db)
}

func TestGetUnsetKeyIsEmpty(t *testing.T) {
	r := newTestRepo(t)
	v, err := r.Get(context.Background(), KeyBgmToken)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "" {
		t.Fatalf("unset key must read as empty, got %q", v)
	}
}

func TestSetOverwrites(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.Set(ctx, KeyBgmToken, "first"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := r.Set(ctx, KeyBgmToken, "second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, err := r.Get(ctx, KeyBgmToken)
	if err != nil || v != "second" {
		t.Fatalf("expected overwritten value, got %q err=%v", v, err)
	}
}

func TestDeleteThenGet(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	if err := r.Set(ctx, KeyBgmToken, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := r.Delete(ctx, KeyBgmToken); err != nil {
		t.Fatalf("delete: %v", err)
	}
	v, err := r.Get(ctx, KeyBgmToken)
	if err != nil || v != "" {
		t.Fatalf("expected empty after delete, got %q err=%v", v, err)
	}
}

func TestBgmTokenLookupFeedsCache(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	cache := source.NewTokenCache(r.BgmTokenLookup(), time.Hour)

	tok, err := cache.Token(ctx)
	if err != nil || tok != "" {
		t.Fatalf("unset token: %q err=%v", tok, err)
	}

	if err := r.Set(ctx, KeyBgmToken, "tok-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	cache.Invalidate()

	tok, err = cache.Token(ctx)
	if err != nil || tok != "tok-1" {
		t.Fatalf("expected stored token after invalidate, got %q err=%v", tok, err)
	}
}
