package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/ecurie-aix/rover-panel/internal/access"
	"github.com/ecurie-aix/rover-panel/internal/identity"
	"github.com/ecurie-aix/rover-panel/internal/view"
)

// UserHandler serves the profile pages and the access-request entry point.
type UserHandler struct {
	identity *identity.Service
	workflow *access.Workflow
}

func NewUserHandler(ident *identity.Service, workflow *access.Workflow) *UserHandler {
	return &UserHandler{identity: ident, workflow: workflow}
}

// Profile shows the account, its grants and the requestable permissions.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r, h.identity)
	if user == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := view.Render(w, r, "users/profile.html", map[string]any{
		"User":        user,
		"Requestable": access.Requestable,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// EditProfile updates username, email and optionally the password.
func (h *UserHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r, h.identity)
	if user == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if r.Method == http.MethodGet {
		if err := view.Render(w, r, "users/edit_profile.html", map[string]any{"User": user}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(r.FormValue("email"))
	if username == "" || email == "" {
		view.Flash(w, "Nom d'utilisateur et email sont obligatoires.", "warning")
		http.Redirect(w, r, "/user/edit_profile", http.StatusSeeOther)
		return
	}

	err := h.identity.UpdateProfile(r.Context(), user, username, email)
	switch {
	case errors.Is(err, identity.ErrDuplicateUsername):
		view.Flash(w, "Ce nom d'utilisateur est déjà pris.", "danger")
		http.Redirect(w, r, "/user/edit_profile", http.StatusSeeOther)
		return
	case errors.Is(err, identity.ErrDuplicateEmail):
		view.Flash(w, "Cet email est déjà utilisé.", "danger")
		http.Redirect(w, r, "/user/edit_profile", http.StatusSeeOther)
		return
	case err != nil:
		log.Printf("edit profile: %v", err)
		view.Flash(w, "Erreur interne, réessayez.", "danger")
		http.Redirect(w, r, "/user/edit_profile", http.StatusSeeOther)
		return
	}

	if pw := r.FormValue("password"); pw != "" {
		if err := h.identity.SetPassword(r.Context(), user, pw); err != nil {
			log.Printf("set password: %v", err)
			view.Flash(w, "Erreur interne, réessayez.", "danger")
			http.Redirect(w, r, "/user/edit_profile", http.StatusSeeOther)
			return
		}
	}

	view.Flash(w, "Profil mis à jour avec succès.", "success")
	http.Redirect(w, r, "/user/profile", http.StatusSeeOther)
}

// RequestAccess files an access request for the permission in the path.
// Duplicates and already-held permissions come back as notices, never as
// new rows.
func (h *UserHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r, h.identity)
	if user == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	name := r.PathValue("permission")

	err := h.workflow.Request(r.Context(), user, name)
	switch {
	case errors.Is(err, access.ErrUnknownPermission):
		view.Flash(w, "Permission inconnue.", "danger")
	case errors.Is(err, access.ErrAlreadyGranted):
		view.Flash(w, fmt.Sprintf("Vous avez déjà la permission '%s'.", name), "info")
	case errors.Is(err, access.ErrDuplicateRequest):
		view.Flash(w, fmt.Sprintf("Une demande pour '%s' est déjà en attente.", name), "warning")
	case err != nil:
		log.Printf("request access: %v", err)
		view.Flash(w, "Erreur interne, réessayez.", "danger")
	default:
		view.Flash(w, fmt.Sprintf("Demande pour '%s' envoyée.", name), "success")
	}
	http.Redirect(w, r, "/user/profile", http.StatusSeeOther)
}
