package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ecurie-aix/rover-panel/internal/audit"
	"github.com/ecurie-aix/rover-panel/internal/identity"
)

func setupAuth(t *testing.T) (*AuthHandler, *identity.Service) {
	st := setupStore(t)
	ident := identity.NewService(st)
	return NewAuthHandler(ident, audit.NewLog(st)), ident
}

func loginRequest(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestLoginSuccessOpensSession(t *testing.T) {
	h, ident := setupAuth(t)
	if _, err := ident.Register(context.Background(), "alice", "alice@example.com", "s3cret", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := httptest.NewRecorder()
	h.Login(w, loginRequest("alice", "s3cret"))

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard/" {
		t.Fatalf("expected redirect to dashboard, code=%d loc=%q", w.Code, w.Header().Get("Location"))
	}
	session := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			session = true
		}
	}
	if !session {
		t.Fatalf("expected session cookie")
	}
}

func TestLoginHonorsDashboardNextTarget(t *testing.T) {
	h, ident := setupAuth(t)
	if _, err := ident.Register(context.Background(), "bob", "bob@example.com", "pw", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	form := url.Values{"username": {"bob"}, "password": {"pw"}, "next": {"/dashboard/graphs"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Login(w, r)
	if w.Header().Get("Location") != "/dashboard/graphs" {
		t.Fatalf("expected next honored, got %q", w.Header().Get("Location"))
	}

	// External or non-dashboard targets are ignored.
	form.Set("next", "https://evil.example")
	r = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	h.Login(w, r)
	if w.Header().Get("Location") != "/dashboard/" {
		t.Fatalf("expected external next ignored, got %q", w.Header().Get("Location"))
	}
}

func TestLoginFailureLeavesNoSession(t *testing.T) {
	h, ident := setupAuth(t)
	if _, err := ident.Register(context.Background(), "carol", "carol@example.com", "pw", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := httptest.NewRecorder()
	h.Login(w, loginRequest("carol", "wrong"))

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to login page, code=%d loc=%q", w.Code, w.Header().Get("Location"))
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			t.Fatalf("session cookie set on failed login")
		}
	}
}

func TestLoginFailureNoticeShowsOnNextPage(t *testing.T) {
	h, ident := setupAuth(t)
	if _, err := ident.Register(context.Background(), "carol", "carol@example.com", "pw", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := httptest.NewRecorder()
	h.Login(w, loginRequest("carol", "wrong"))

	var flash *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" && c.Value != "" {
			flash = c
		}
	}
	if flash == nil {
		t.Fatalf("expected flash cookie on failed login")
	}

	// Following the redirect must actually display the notice.
	next := httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil)
	next.AddCookie(flash)
	nw := httptest.NewRecorder()
	h.Home(nw, next)
	if nw.Code != http.StatusOK {
		t.Fatalf("expected 200 on login page got %d", nw.Code)
	}
	if !strings.Contains(nw.Body.String(), "Identifiants invalides.") {
		t.Fatalf("notice missing from rendered page: %s", nw.Body.String())
	}
}

func TestLoginFailureKeepsNextTarget(t *testing.T) {
	h, ident := setupAuth(t)
	if _, err := ident.Register(context.Background(), "carol", "carol@example.com", "pw", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	form := url.Values{"username": {"carol"}, "password": {"wrong"}, "next": {"/dashboard/graphs"}}
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Login(w, r)
	if got := w.Header().Get("Location"); got != "/?next="+url.QueryEscape("/dashboard/graphs") {
		t.Fatalf("expected next preserved in redirect, got %q", got)
	}
}

func TestLoginRecordsSiteConnection(t *testing.T) {
	h, ident := setupAuth(t)
	if _, err := ident.Register(context.Background(), "dave", "dave@example.com", "pw", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	w := httptest.NewRecorder()
	h.Login(w, loginRequest("dave", "pw"))

	got, err := h.audit.LastEventFor(context.Background(), "site")
	if err != nil {
		t.Fatalf("last event: %v", err)
	}
	if got == audit.NoEvent || !strings.HasSuffix(got, "par dave") {
		t.Fatalf("expected site connexion recorded, got %q", got)
	}
}
