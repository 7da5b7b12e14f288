// Package handlers contains the HTTP handlers of the control panel. Each
// handler owns the services it needs and receives the caller's identity
// through the request context set by the auth middleware.
package handlers

import (
	"net/http"

	"github.com/ecurie-aix/rover-panel/auth"
	"github.com/ecurie-aix/rover-panel/internal/identity"
	"github.com/ecurie-aix/rover-panel/internal/models"
)

// currentUser resolves the request's session to a full user record,
// permissions included. Routes behind RequireAuth can rely on a non-nil
// result; nil means the session vanished mid-flight.
func currentUser(r *http.Request, ident *identity.Service) *models.User {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := ident.UserByID(r.Context(), uid)
	if err != nil {
		return nil
	}
	return user
}
