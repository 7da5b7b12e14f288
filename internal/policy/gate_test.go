package policy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecurie-aix/rover-panel/auth"
)

type fakeChecker map[uint][]string

func (f fakeChecker) HasPermission(_ context.Context, userID uint, name string) (bool, error) {
	for _, p := range f[userID] {
		if p == name {
			return true, nil
		}
	}
	return false, nil
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestRequireAllowsHolder(t *testing.T) {
	gate := NewGate(fakeChecker{1: {"dashboard"}})
	next, called := okHandler()

	r := httptest.NewRequest(http.MethodGet, "/dashboard/", nil)
	r = r.WithContext(auth.WithUserID(r.Context(), 1))
	w := httptest.NewRecorder()

	gate.Require("dashboard")(next).ServeHTTP(w, r)
	if !*called || w.Code != http.StatusOK {
		t.Fatalf("expected pass-through, called=%v code=%d", *called, w.Code)
	}
}

func TestRequireDeniesJSONClient(t *testing.T) {
	gate := NewGate(fakeChecker{1: {}})
	next, called := okHandler()

	r := httptest.NewRequest(http.MethodGet, "/dashboard/vehicle/data", nil)
	r.Header.Set("Accept", "application/json")
	r = r.WithContext(auth.WithUserID(r.Context(), 1))
	w := httptest.NewRecorder()

	gate.Require("dashboard")(next).ServeHTTP(w, r)
	if *called {
		t.Fatalf("handler ran despite denial")
	}
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "forbidden" || body.Details["permission"] != "dashboard" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRequireRedirectsBrowser(t *testing.T) {
	gate := NewGate(fakeChecker{})
	next, called := okHandler()

	r := httptest.NewRequest(http.MethodGet, "/admin/", nil)
	r = r.WithContext(auth.WithUserID(r.Context(), 5))
	w := httptest.NewRecorder()

	gate.Require("admin")(next).ServeHTTP(w, r)
	if *called {
		t.Fatalf("handler ran despite denial")
	}
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect home, code=%d loc=%q", w.Code, w.Header().Get("Location"))
	}
	// The denial leaves a flash notice for the landing page.
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "flash" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected flash cookie on denial")
	}
}

func TestRequireDeniesAnonymous(t *testing.T) {
	gate := NewGate(fakeChecker{1: {"dashboard"}})
	next, called := okHandler()

	r := httptest.NewRequest(http.MethodGet, "/dashboard/", nil)
	w := httptest.NewRecorder()

	gate.Require("dashboard")(next).ServeHTTP(w, r)
	if *called {
		t.Fatalf("handler ran without identity")
	}
}
