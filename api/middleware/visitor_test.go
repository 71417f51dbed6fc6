package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/royaliq/storefront/pkg/auth/visitor"
	"github.com/royaliq/storefront/pkg/config"
)

func testVisitorConfig() config.VisitorConfig {
	return config.VisitorConfig{
		Secret:  "test-secret",
		Issuer:  "royaliq-storefront",
		TTL:     time.Hour,
		Cookie:  "royaliq_visitor",
		Session: "royaliq_customer",
	}
}

func newVisitorMiddleware(t *testing.T) (func(http.Handler) http.Handler, *visitor.Manager, config.VisitorConfig) {
	t.Helper()
	cfg := testVisitorConfig()
	manager, err := visitor.NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return Visitor(manager, cfg, nil), manager, cfg
}

func TestVisitorMintsIdentityForNewShopper(t *testing.T) {
	mw, manager, cfg := newVisitorMiddleware(t)

	var seenID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = VisitorIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seenID == "" {
		t.Fatal("expected a visitor id in context")
	}

	var issued *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == cfg.Cookie {
			issued = c
		}
	}
	if issued == nil {
		t.Fatal("expected a visitor cookie to be set")
	}
	if !issued.HttpOnly {
		t.Error("visitor cookie should be http-only")
	}

	parsed, err := manager.Parse(issued.Value)
	if err != nil {
		t.Fatalf("issued cookie does not parse: %v", err)
	}
	if parsed != seenID {
		t.Errorf("cookie identity %q != context identity %q", parsed, seenID)
	}
}

func TestVisitorReusesValidCookie(t *testing.T) {
	mw, manager, cfg := newVisitorMiddleware(t)

	wantID, token, err := manager.Issue(time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var seenID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = VisitorIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Cookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenID != wantID {
		t.Errorf("got visitor %q, want %q", seenID, wantID)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == cfg.Cookie {
			t.Error("valid cookie should not be reissued")
		}
	}
}

func TestVisitorReplacesTamperedCookie(t *testing.T) {
	mw, _, cfg := newVisitorMiddleware(t)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Cookie, Value: "not-a-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	replaced := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == cfg.Cookie {
			replaced = true
		}
	}
	if !replaced {
		t.Error("tampered cookie should be replaced with a fresh identity")
	}
}

func TestVisitorLiftsSessionCookie(t *testing.T) {
	mw, _, cfg := newVisitorMiddleware(t)

	var seenToken string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenToken = SessionTokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cfg.Session, Value: "cust-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seenToken != "cust-token" {
		t.Errorf("got session token %q, want %q", seenToken, "cust-token")
	}
}
