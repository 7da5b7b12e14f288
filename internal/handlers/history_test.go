package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ecurie-aix/rover-panel/internal/audit"
	"github.com/ecurie-aix/rover-panel/internal/models"
	"github.com/ecurie-aix/rover-panel/internal/store"
)

func setupHistory(t *testing.T) (*HistoryHandler, *store.Store) {
	st := setupStore(t)
	return NewHistoryHandler(st, audit.NewLog(st)), st
}

func seedRaces(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC)
	end := start.Add(20 * time.Minute)
	races := []models.RaceLog{
		{RaceName: "Course sprint", StartTime: start, EndTime: &end, UserID: 1, UserName: "alice", Distance: 1.2, MaxSpeed: 28},
		{RaceName: "Endurance", StartTime: start.Add(time.Hour), UserID: 2, UserName: "bob", Distance: 0.4},
		{RaceName: "Course de nuit", StartTime: start.Add(2 * time.Hour), EndTime: &end, UserID: 1, UserName: "alice", Distance: 2.0},
	}
	for i := range races {
		if err := st.CreateRace(ctx, &races[i]); err != nil {
			t.Fatalf("seed race: %v", err)
		}
	}
}

type coursesResponse struct {
	Courses     []models.RaceLog `json:"courses"`
	Total       int64            `json:"total"`
	Pages       int              `json:"pages"`
	CurrentPage int              `json:"current_page"`
}

func TestAPICoursesListsNewestFirst(t *testing.T) {
	h, st := setupHistory(t)
	seedRaces(t, st)

	r := httptest.NewRequest(http.MethodGet, "/dashboard/historique/api/courses", nil)
	w := httptest.NewRecorder()
	h.APICourses(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var resp coursesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || len(resp.Courses) != 3 {
		t.Fatalf("expected 3 races got total=%d len=%d", resp.Total, len(resp.Courses))
	}
	if resp.Courses[0].RaceName != "Course de nuit" {
		t.Fatalf("expected newest first, got %q", resp.Courses[0].RaceName)
	}
	if resp.Pages != 1 || resp.CurrentPage != 1 {
		t.Fatalf("unexpected pagination: pages=%d current=%d", resp.Pages, resp.CurrentPage)
	}
}

func TestAPICoursesFilters(t *testing.T) {
	h, st := setupHistory(t)
	seedRaces(t, st)

	r := httptest.NewRequest(http.MethodGet, "/dashboard/historique/api/courses?statut=en_cours", nil)
	w := httptest.NewRecorder()
	h.APICourses(w, r)
	var resp coursesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Courses[0].RaceName != "Endurance" {
		t.Fatalf("expected the ongoing race, got %+v", resp.Courses)
	}

	r = httptest.NewRequest(http.MethodGet, "/dashboard/historique/api/courses?q=alice", nil)
	w = httptest.NewRecorder()
	h.APICourses(w, r)
	resp = coursesResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 races for alice got %d", resp.Total)
	}
}

func TestAPIConnectionsOnlySiteFeature(t *testing.T) {
	h, st := setupHistory(t)
	ctx := context.Background()

	rows := []models.ConnectionLog{
		{Feature: "site", Event: "connexion", UserID: 1, UserName: "alice", CreatedAt: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)},
		{Feature: "dashboard", Event: "connexion", UserID: 1, UserName: "alice", CreatedAt: time.Date(2026, 6, 1, 11, 0, 0, 0, time.UTC)},
	}
	for i := range rows {
		if err := st.AppendConnection(ctx, &rows[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/dashboard/historique/api/connexions", nil)
	w := httptest.NewRecorder()
	h.APIConnections(w, r)
	var resp struct {
		Connexions []connectionRow `json:"connexions"`
		Total      int64           `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || len(resp.Connexions) != 1 {
		t.Fatalf("expected only the site row, got %+v", resp)
	}
	if resp.Connexions[0].UserName != "alice" || resp.Connexions[0].Event != "connexion" {
		t.Fatalf("unexpected row: %+v", resp.Connexions[0])
	}
	// The timestamp is serialized in the display timezone, second precision.
	if _, err := time.Parse("2006-01-02T15:04:05", resp.Connexions[0].ConnectionDate); err != nil {
		t.Fatalf("unexpected date format %q: %v", resp.Connexions[0].ConnectionDate, err)
	}
}
