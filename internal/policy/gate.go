// Package policy provides the authorization gate interposed before every
// permission-protected route.
package policy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ecurie-aix/rover-panel/auth"
	"github.com/ecurie-aix/rover-panel/httpx"
	"github.com/ecurie-aix/rover-panel/internal/view"
)

// Checker answers "does user U hold permission P". Implemented by the
// identity service.
type Checker interface {
	HasPermission(ctx context.Context, userID uint, name string) (bool, error)
}

// Gate wraps handlers with a permission requirement.
type Gate struct {
	perms Checker
}

// NewGate builds the gate on top of a permission checker.
func NewGate(perms Checker) *Gate {
	return &Gate{perms: perms}
}

// Check reports whether the request's user holds the permission. Lookup
// failures count as a denial.
func (g *Gate) Check(ctx context.Context, name string) bool {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return false
	}
	held, err := g.perms.HasPermission(ctx, uid, name)
	return err == nil && held
}

// Require returns middleware that short-circuits the wrapped handler when
// the caller lacks the permission: 403 JSON for API clients, a flash
// notice and redirect home for browsers.
func (g *Gate) Require(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.Check(r.Context(), name) {
				if auth.WantsJSON(r) {
					httpx.JSONError(w, http.StatusForbidden, "forbidden",
						map[string]string{"permission": name})
					return
				}
				view.Flash(w, fmt.Sprintf("Vous n'avez pas la permission '%s'.", name), "danger")
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
