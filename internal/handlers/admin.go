package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/ecurie-aix/rover-panel/internal/access"
	"github.com/ecurie-aix/rover-panel/internal/identity"
	"github.com/ecurie-aix/rover-panel/internal/models"
	"github.com/ecurie-aix/rover-panel/internal/view"
)

// AdminHandler serves the administration screens: the user × permission
// grid and the access-request queue.
type AdminHandler struct {
	identity *identity.Service
	workflow *access.Workflow
}

func NewAdminHandler(ident *identity.Service, workflow *access.Workflow) *AdminHandler {
	return &AdminHandler{identity: ident, workflow: workflow}
}

// Index shows all users, the toggleable permissions and the pending
// request count. The superadmin column is hidden from plain admins.
func (h *AdminHandler) Index(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r, h.identity)
	if actor == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	all, err := h.identity.ListPermissions(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	perms := all
	if !actor.HasPermission(models.PermSuperAdmin) {
		perms = perms[:0:0]
		for _, p := range all {
			if p.Name != models.PermSuperAdmin {
				perms = append(perms, p)
			}
		}
	}
	pending, err := h.workflow.Pending(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := view.Render(w, r, "admin/index.html", map[string]any{
		"User":         actor,
		"Users":        users,
		"Permissions":  perms,
		"PendingCount": len(pending),
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// AccessRequests lists the pending queue.
func (h *AdminHandler) AccessRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := h.workflow.Pending(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := view.Render(w, r, "admin/access_requests.html", map[string]any{
		"Requests": pending,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ApproveRequest resolves a request positively and grants the permission.
func (h *AdminHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

// RejectRequest resolves a request negatively.
func (h *AdminHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *AdminHandler) resolve(w http.ResponseWriter, r *http.Request, approve bool) {
	actor := currentUser(r, h.identity)
	if actor == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var req *models.AccessRequest
	if approve {
		req, err = h.workflow.Approve(r.Context(), actor, uint(id))
	} else {
		req, err = h.workflow.Reject(r.Context(), actor, uint(id))
	}
	switch {
	case errors.Is(err, access.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, access.ErrAlreadyResolved):
		view.Flash(w, "Cette demande a déjà été traitée.", "warning")
	case errors.Is(err, access.ErrForbidden):
		view.Flash(w, "Vous n'êtes pas autorisé à traiter cette demande.", "danger")
	case err != nil:
		log.Printf("resolve request: %v", err)
		view.Flash(w, "Erreur interne, réessayez.", "danger")
	case approve:
		view.Flash(w, fmt.Sprintf("Accès '%s' approuvé pour %s.", req.Permission, req.User.Username), "success")
	default:
		view.Flash(w, fmt.Sprintf("Accès '%s' rejeté pour %s.", req.Permission, req.User.Username), "info")
	}
	http.Redirect(w, r, "/admin/access_requests", http.StatusSeeOther)
}

// TogglePermission flips a grant from the admin grid.
func (h *AdminHandler) TogglePermission(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r, h.identity)
	if actor == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	name := r.PathValue("permission")

	target, granted, err := h.workflow.ToggleDirect(r.Context(), actor, uint(id), name)
	switch {
	case errors.Is(err, access.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, access.ErrForbidden):
		view.Flash(w, forbiddenNotice(err), "danger")
	case err != nil:
		log.Printf("toggle permission: %v", err)
		view.Flash(w, "Erreur interne, réessayez.", "danger")
	case granted:
		view.Flash(w, fmt.Sprintf("Permission '%s' attribuée à %s.", name, target.Username), "success")
	default:
		view.Flash(w, fmt.Sprintf("Permission '%s' retirée de %s.", name, target.Username), "info")
	}
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// DeleteUser removes an account from the admin screen.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := currentUser(r, h.identity)
	if actor == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	target, err := h.workflow.DeleteUser(r.Context(), actor, uint(id))
	switch {
	case errors.Is(err, access.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, access.ErrForbidden):
		view.Flash(w, forbiddenNotice(err), "danger")
	case err != nil:
		log.Printf("delete user: %v", err)
		view.Flash(w, "Erreur interne, réessayez.", "danger")
	default:
		view.Flash(w, fmt.Sprintf("L'utilisateur %s a été supprimé.", target.Username), "success")
	}
	http.Redirect(w, r, "/admin/", http.StatusSeeOther)
}

// forbiddenNotice turns an authorization refusal into a user notice,
// dropping the generic wrap so only the precise reason shows.
func forbiddenNotice(err error) string {
	msg, _, _ := strings.Cut(err.Error(), ":")
	r := []rune(msg)
	if len(r) == 0 {
		return "Action non autorisée."
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r) + "."
}
