package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/ecurie-aix/rover-panel/httpx"
	"github.com/ecurie-aix/rover-panel/internal/audit"
	"github.com/ecurie-aix/rover-panel/internal/config"
	"github.com/ecurie-aix/rover-panel/internal/identity"
	"github.com/ecurie-aix/rover-panel/internal/probe"
	"github.com/ecurie-aix/rover-panel/internal/telemetry"
	"github.com/ecurie-aix/rover-panel/internal/view"
)

// DashboardHandler serves the vehicle pages and the telemetry API the
// browser and the vehicle both talk to.
type DashboardHandler struct {
	cache    *telemetry.Cache
	audit    *audit.Log
	identity *identity.Service
	robot    config.RobotConfig
}

func NewDashboardHandler(cache *telemetry.Cache, auditLog *audit.Log, ident *identity.Service, robot config.RobotConfig) *DashboardHandler {
	return &DashboardHandler{cache: cache, audit: auditLog, identity: ident, robot: robot}
}

// Connect is the dashboard landing page: vehicle identity plus the last
// time anyone opened the live view.
func (h *DashboardHandler) Connect(w http.ResponseWriter, r *http.Request) {
	last, err := h.audit.LastEventFor(r.Context(), "dashboard")
	if err != nil {
		log.Printf("last dashboard event: %v", err)
		last = audit.NoEvent
	}
	if err := view.Render(w, r, "dashboard/connect.html", map[string]any{
		"RobotIP":        h.robot.IP,
		"RobotMAC":       h.robot.MAC,
		"LastConnection": last,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Graphs opens the live telemetry view and records the connection in the
// audit trail.
func (h *DashboardHandler) Graphs(w http.ResponseWriter, r *http.Request) {
	if user := currentUser(r, h.identity); user != nil {
		if err := h.audit.Record(r.Context(), user, "dashboard", "connexion"); err != nil {
			log.Printf("audit dashboard connexion: %v", err)
		}
	}
	if err := view.Render(w, r, "dashboard/graphs.html", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Pilotage renders the manual driving page.
func (h *DashboardHandler) Pilotage(w http.ResponseWriter, r *http.Request) {
	if err := view.Render(w, r, "dashboard/pilotage.html", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// VehicleData is the telemetry exchange point. POST ingests a reading from
// the vehicle, GET hands the current state to the browser.
func (h *DashboardHandler) VehicleData(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "unreadable body", nil)
			return
		}
		h.cache.Push(raw)
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	httpx.JSON(w, http.StatusOK, h.cache.Pull())
}

// VehicleControl relays a start/stop command. The command is echoed back
// in French for the UI.
//
// TODO: forward the command to the vehicle over its UDP control socket
// once the firmware exposes one.
func (h *DashboardHandler) VehicleControl(w http.ResponseWriter, r *http.Request) {
	var cmd struct {
		Start bool `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	action := "arrêter"
	if cmd.Start {
		action = "démarrer"
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "success", "commande": action})
}

// VehiclePing probes the vehicle address once and reports reachability.
func (h *DashboardHandler) VehiclePing(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, probe.Ping(r.Context(), h.robot.IP))
}

// LogDisconnect records that the browser left the live view. Sent by the
// page's unload handler, so the response body is rarely seen.
func (h *DashboardHandler) LogDisconnect(w http.ResponseWriter, r *http.Request) {
	if user := currentUser(r, h.identity); user != nil {
		if err := h.audit.Record(r.Context(), user, "dashboard", "déconnexion"); err != nil {
			log.Printf("audit dashboard déconnexion: %v", err)
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged"})
}
