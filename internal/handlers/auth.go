package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/ecurie-aix/rover-panel/auth"
	"github.com/ecurie-aix/rover-panel/internal/audit"
	"github.com/ecurie-aix/rover-panel/internal/identity"
	"github.com/ecurie-aix/rover-panel/internal/view"
)

// AuthHandler serves login, registration and logout.
type AuthHandler struct {
	identity *identity.Service
	audit    *audit.Log
}

func NewAuthHandler(ident *identity.Service, auditLog *audit.Log) *AuthHandler {
	return &AuthHandler{identity: ident, audit: auditLog}
}

// Home renders the landing/login page. An authenticated visitor is sent
// straight to the dashboard.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if user := currentUser(r, h.identity); user != nil {
		http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
		return
	}
	h.renderHome(w, r, r.URL.Query().Get("next"))
}

func (h *AuthHandler) renderHome(w http.ResponseWriter, r *http.Request, next string) {
	if err := view.Render(w, r, "home.html", map[string]any{"Next": next}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Login checks the credentials, opens the session and logs the site
// connection in the audit trail.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	next := r.FormValue("next")

	user, err := h.identity.Authenticate(r.Context(), username, password)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			log.Printf("login: %v", err)
		}
		// Flash cookies only show on the next request, so redirect back to
		// the login page instead of rendering it in place.
		view.Flash(w, "Identifiants invalides.", "danger")
		target := "/"
		if next != "" {
			target = "/?next=" + url.QueryEscape(next)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	auth.CreateSession(w, user.ID)
	if err := h.audit.Record(r.Context(), user, "site", "connexion"); err != nil {
		log.Printf("audit connexion: %v", err)
	}
	view.Flash(w, "Connexion réussie.", "success")

	// Only internal dashboard targets are honored for the next hop.
	if strings.HasPrefix(next, "/dashboard") {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

// Register creates a new active account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if err := view.Render(w, r, "register.html", nil); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if username == "" || email == "" || password == "" {
		view.Flash(w, "Tous les champs sont obligatoires.", "warning")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	_, err := h.identity.Register(r.Context(), username, email, password,
		r.FormValue("first_name"), r.FormValue("last_name"))
	switch {
	case errors.Is(err, identity.ErrDuplicateUsername):
		view.Flash(w, "Ce nom d'utilisateur est déjà pris.", "danger")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
	case errors.Is(err, identity.ErrDuplicateEmail):
		view.Flash(w, "Cet email est déjà utilisé.", "danger")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
	case err != nil:
		log.Printf("register: %v", err)
		view.Flash(w, "Erreur interne, réessayez.", "danger")
		http.Redirect(w, r, "/register", http.StatusSeeOther)
	default:
		view.Flash(w, "Inscription réussie. Vous pouvez maintenant vous connecter.", "success")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// Logout closes the session and records the disconnection.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := currentUser(r, h.identity); user != nil {
		if err := h.audit.Record(r.Context(), user, "site", "déconnexion"); err != nil {
			log.Printf("audit déconnexion: %v", err)
		}
	}
	auth.ClearSession(w)
	view.Flash(w, "Déconnexion effectuée.", "info")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// About renders the static about page.
func (h *AuthHandler) About(w http.ResponseWriter, r *http.Request) {
	if err := view.Render(w, r, "about.html", nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
