package main

import (
	"net/http"

	"github.com/ecurie-aix/rover-panel/auth"
	"github.com/ecurie-aix/rover-panel/internal/handlers"
	"github.com/ecurie-aix/rover-panel/internal/models"
	"github.com/ecurie-aix/rover-panel/internal/policy"
	"github.com/ecurie-aix/rover-panel/internal/view"
)

// Handlers groups everything the route table needs.
type Handlers struct {
	Auth      *handlers.AuthHandler
	User      *handlers.UserHandler
	Admin     *handlers.AdminHandler
	Dashboard *handlers.DashboardHandler
	History   *handlers.HistoryHandler
	Gate      *policy.Gate
}

// App is the main application handler that sets up all routes.
type App struct {
	mux *http.ServeMux
	h   Handlers
}

// NewApp creates the application with all routes configured.
func NewApp(h Handlers) *App {
	app := &App{mux: http.NewServeMux(), h: h}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler. Session and theme context apply to
// every route.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	auth.Middleware(view.ThemeMiddleware(a.mux)).ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /{$}", a.h.Auth.Home)
	a.mux.HandleFunc("POST /login", a.h.Auth.Login)
	a.mux.HandleFunc("GET /logout", a.h.Auth.Logout)
	a.mux.HandleFunc("GET /register", a.h.Auth.Register)
	a.mux.HandleFunc("POST /register", a.h.Auth.Register)
	a.mux.HandleFunc("GET /about", a.h.Auth.About)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (require logged-in user)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /user/profile",
		a.requireAuth(http.HandlerFunc(a.h.User.Profile)))
	a.mux.Handle("GET /user/edit_profile",
		a.requireAuth(http.HandlerFunc(a.h.User.EditProfile)))
	a.mux.Handle("POST /user/edit_profile",
		a.requireAuth(http.HandlerFunc(a.h.User.EditProfile)))
	a.mux.Handle("POST /user/request_access/{permission}",
		a.requireAuth(http.HandlerFunc(a.h.User.RequestAccess)))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (require auth + admin permission)
	// ─────────────────────────────────────────────────────────────────────────
	admin := a.requirePermission(models.PermAdmin)
	a.mux.Handle("GET /admin/{$}",
		a.requireAuth(admin(http.HandlerFunc(a.h.Admin.Index))))
	a.mux.Handle("GET /admin/access_requests",
		a.requireAuth(admin(http.HandlerFunc(a.h.Admin.AccessRequests))))
	a.mux.Handle("POST /admin/access_requests/{id}/approve",
		a.requireAuth(admin(http.HandlerFunc(a.h.Admin.ApproveRequest))))
	a.mux.Handle("POST /admin/access_requests/{id}/reject",
		a.requireAuth(admin(http.HandlerFunc(a.h.Admin.RejectRequest))))
	a.mux.Handle("POST /admin/users/{id}/toggle/{permission}",
		a.requireAuth(admin(http.HandlerFunc(a.h.Admin.TogglePermission))))
	a.mux.Handle("POST /admin/users/{id}/delete",
		a.requireAuth(admin(http.HandlerFunc(a.h.Admin.DeleteUser))))

	// ─────────────────────────────────────────────────────────────────────────
	// Dashboard routes (require auth + dashboard permission)
	// ─────────────────────────────────────────────────────────────────────────
	dashboard := a.requirePermission(models.PermDashboard)
	a.mux.Handle("GET /dashboard/{$}",
		a.requireAuth(dashboard(http.HandlerFunc(a.h.Dashboard.Connect))))
	a.mux.Handle("GET /dashboard/graphs",
		a.requireAuth(dashboard(http.HandlerFunc(a.h.Dashboard.Graphs))))
	a.mux.Handle("GET /dashboard/vehicle/data",
		a.requireAuth(dashboard(http.HandlerFunc(a.h.Dashboard.VehicleData))))
	a.mux.Handle("POST /dashboard/vehicle/data",
		a.requireAuth(dashboard(http.HandlerFunc(a.h.Dashboard.VehicleData))))
	a.mux.Handle("POST /dashboard/vehicle/control",
		a.requireAuth(dashboard(http.HandlerFunc(a.h.Dashboard.VehicleControl))))
	a.mux.Handle("GET /dashboard/vehicle/ping",
		a.requireAuth(dashboard(http.HandlerFunc(a.h.Dashboard.VehiclePing))))
	a.mux.Handle("POST /dashboard/log-disconnect",
		a.requireAuth(dashboard(http.HandlerFunc(a.h.Dashboard.LogDisconnect))))

	// Pilotage (manual driving) has its own permission.
	a.mux.Handle("GET /pilotage/{$}",
		a.requireAuth(a.requirePermission(models.PermPilotage)(http.HandlerFunc(a.h.Dashboard.Pilotage))))

	// History page and its JSON listings.
	historique := a.requirePermission(models.PermHistorique)
	a.mux.Handle("GET /dashboard/historique",
		a.requireAuth(historique(http.HandlerFunc(a.h.History.Home))))
	a.mux.Handle("GET /dashboard/historique/api/courses",
		a.requireAuth(historique(http.HandlerFunc(a.h.History.APICourses))))
	a.mux.Handle("GET /dashboard/historique/api/connexions",
		a.requireAuth(historique(http.HandlerFunc(a.h.History.APIConnections))))

	// ─────────────────────────────────────────────────────────────────────────
	// Static files
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
}

// requireAuth wraps a handler to require authentication.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return auth.RequireAuth(next)
}

// requirePermission wraps a handler to require a specific permission.
func (a *App) requirePermission(name string) func(http.Handler) http.Handler {
	return a.h.Gate.Require(name)
}
