package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"galhub/pkg/database"
)

func testTokens() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "galhub-test",
		Duration: time.Hour,
	}
}

func newTestHandler(t *testing.T) (*gin.Engine, *Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepo(db)
	h := NewHandler(repo, testTokens(), nil)
	router := gin.New()
	h.RegisterRoutes(router.Group("/auth"))
	return router, repo
}

func postJSON(t *testing.T, router *gin.Engine, path string, body gin.H, token string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTokenSignParseRoundTrip(t *testing.T) {
	ts := testTokens()
	u := &User{ID: "u1", Username: "alice", TokenVersion: 3}

	token, exp, err := ts.Sign(u)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expiry in the past: %v", exp)
	}

	claims, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" || claims.TokenVersion != 3 {
		t.Fatalf("claims not round-tripped: %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := testTokens().Sign(&User{ID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := TokenService{Secret: []byte("other"), Issuer: "galhub-test", Duration: time.Hour}
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("expected parse failure with a different secret")
	}
}

func TestRegisterLoginFlow(t *testing.T) {
	router, _ := newTestHandler(t)

	w := postJSON(t, router, "/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, "/auth/register", gin.H{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	}, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate email: status = %d", w.Code)
	}

	w = postJSON(t, router, "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, "/auth/login", gin.H{
		"email":    "alice@example.com",
		"password": "wrong password",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d", w.Code)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	router, _ := newTestHandler(t)

	w := postJSON(t, router, "/auth/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter2hunter2",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status = %d", w.Code)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	w = postJSON(t, router, "/auth/logout", gin.H{}, resp.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status = %d, body %s", w.Code, w.Body.String())
	}

	// the old token carries the previous token_version
	w = postJSON(t, router, "/auth/logout", gin.H{}, resp.Token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("stale token must be rejected, status = %d", w.Code)
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/secure", Middleware(testTokens(), nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRepoTokenVersionForMissingUser(t *testing.T) {
	_, repo := newTestHandler(t)
	if _, err := repo.GetTokenVersion(context.Background(), "nope"); err == nil {
		t.Fatalf("missing user must error")
	}
}
