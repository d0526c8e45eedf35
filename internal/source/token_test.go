package source

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenCacheCachesWithinTTL(t *testing.T) {
	calls := 0
	cache := NewTokenCache(func(context.Context) (string, error) {
		calls++
		return "tok-1", nil
	}, time.Minute)

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		tok, err := cache.Token(context.Background())
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		if tok != "tok-1" {
			t.Fatalf("unexpected token %q", tok)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one lookup within ttl, got %d", calls)
	}
}

func TestTokenCacheExpires(t *testing.T) {
	calls := 0
	cache := NewTokenCache(func(context.Context) (string, error) {
		calls++
		return "tok", nil
	}, time.Minute)

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("token: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a re-lookup after ttl, got %d calls", calls)
	}
}

func TestTokenCacheInvalidate(t *testing.T) {
	tokens := []string{"stale", "fresh"}
	cache := NewTokenCache(func(context.Context) (string, error) {
		tok := tokens[0]
		if len(tokens) > 1 {
			tokens = tokens[1:]
		}
		return tok, nil
	}, time.Hour)

	tok, err := cache.Token(context.Background())
	if err != nil || tok != "stale" {
		t.Fatalf("first token: %q err=%v", tok, err)
	}

	cache.Invalidate()

	tok, err = cache.Token(context.Background())
	if err != nil || tok != "fresh" {
		t.Fatalf("expected re-read after invalidate, got %q err=%v", tok, err)
	}
}

func TestTokenCacheZeroTTLForwardsEveryCall(t *testing.T) {
	calls := 0
	cache := NewTokenCache(func(context.Context) (string, error) {
		calls++
		return "tok", nil
	}, 0)

	for i := 0; i < 2; i++ {
		if _, err := cache.Token(context.Background()); err != nil {
			t.Fatalf("token: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("ttl<=0 must not cache, got %d calls", calls)
	}
}

func TestTokenCacheLookupError(t *testing.T) {
	boom := errors.New("settings store down")
	cache := NewTokenCache(func(context.Context) (string, error) {
		return "", boom
	}, time.Minute)

	if _, err := cache.Token(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Fatalf("static token: %q err=%v", tok, err)
	}
}
