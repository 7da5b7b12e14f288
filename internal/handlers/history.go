package handlers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ecurie-aix/rover-panel/httpx"
	"github.com/ecurie-aix/rover-panel/internal/audit"
	"github.com/ecurie-aix/rover-panel/internal/store"
	"github.com/ecurie-aix/rover-panel/internal/view"
)

// HistoryHandler serves the history page and its two JSON listings: past
// rides and the connection audit trail.
type HistoryHandler struct {
	store *store.Store
	audit *audit.Log
}

func NewHistoryHandler(s *store.Store, auditLog *audit.Log) *HistoryHandler {
	return &HistoryHandler{store: s, audit: auditLog}
}

// Home renders the history page shell; the tables load through the APIs.
func (h *HistoryHandler) Home(w http.ResponseWriter, r *http.Request) {
	if err := view.Render(w, r, "dashboard/historique.html", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// APICourses lists past rides, filtered and paginated from query params.
func (h *HistoryHandler) APICourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.RaceFilter{
		Query:   q.Get("q"),
		Type:    q.Get("type_course"),
		From:    parseDay(q.Get("date_debut"), false),
		To:      parseDay(q.Get("date_fin"), true),
		Page:    atoiDefault(q.Get("page"), 1),
		PerPage: atoiDefault(q.Get("per_page"), 10),
	}
	switch q.Get("statut") {
	case "termine":
		yes := true
		f.Finished = &yes
	case "en_cours":
		no := false
		f.Finished = &no
	}

	rows, total, err := h.store.SearchRaces(r.Context(), f)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"courses":      rows,
		"total":        total,
		"pages":        pageCount(total, f.PerPage),
		"current_page": f.Page,
	})
}

// connectionRow is the JSON shape of one audit line, with the timestamp
// already in the display timezone.
type connectionRow struct {
	ID             uint   `json:"id"`
	UserName       string `json:"user_name"`
	Event          string `json:"event"`
	ConnectionDate string `json:"connection_date"`
}

// APIConnections lists site connection events, filtered and paginated.
func (h *HistoryHandler) APIConnections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ConnectionFilter{
		Feature: "site",
		Query:   q.Get("q"),
		Event:   q.Get("type_connexion"),
		From:    parseDay(q.Get("date_debut"), false),
		To:      parseDay(q.Get("date_fin"), true),
		Page:    atoiDefault(q.Get("page"), 1),
		PerPage: atoiDefault(q.Get("per_page"), 10),
	}

	rows, total, err := h.audit.Search(r.Context(), f)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	out := make([]connectionRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, connectionRow{
			ID:             row.ID,
			UserName:       row.UserName,
			Event:          row.Event,
			ConnectionDate: h.audit.Localize(row.CreatedAt).Format("2006-01-02T15:04:05"),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"connexions":   out,
		"total":        total,
		"pages":        pageCount(total, f.PerPage),
		"current_page": f.Page,
	})
}

// parseDay reads a YYYY-MM-DD query param. End-of-range dates cover the
// whole day.
func parseDay(s string, endOfDay bool) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func pageCount(total int64, perPage int) int {
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}
