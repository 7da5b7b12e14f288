// Package access implements the access-request workflow: a user asks for a
// permission, an administrator approves or rejects, with precedence rules
// protecting the admin and superadmin capabilities.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ecurie-aix/rover-panel/internal/models"
)

// Soft, user-facing failures. Handlers turn them into flash notices.
var (
	ErrUnknownPermission = errors.New("permission inconnue")
	ErrAlreadyGranted    = errors.New("permission déjà accordée")
	ErrDuplicateRequest  = errors.New("demande déjà en attente")
	ErrAlreadyResolved   = errors.New("demande déjà traitée")
	ErrForbidden         = errors.New("action non autorisée")
	ErrNotFound          = errors.New("introuvable")
)

// Specific authorization refusals, all matching ErrForbidden so callers
// can test the class while still showing a precise notice.
var (
	ErrSuperadminImmutable = fmt.Errorf("la permission superadmin ne peut être modifiée: %w", ErrForbidden)
	ErrPrivilegedTarget    = fmt.Errorf("seul un superadmin peut modifier un autre administrateur: %w", ErrForbidden)
	ErrSelfAdminRemoval    = fmt.Errorf("vous ne pouvez pas retirer votre propre permission admin: %w", ErrForbidden)
	ErrAdminScope          = fmt.Errorf("seul un superadmin peut agir sur la permission admin d'un autre utilisateur: %w", ErrForbidden)
)

// Requestable lists the permissions a user may ask for through the
// workflow. superadmin is deliberately absent: it can never be obtained
// here, nor through a direct toggle.
var Requestable = []string{
	models.PermDashboard,
	models.PermPilotage,
	models.PermHistorique,
	models.PermAdmin,
}

// Store is the persistence port of the workflow. Composite transitions
// (approve, direct grant) must be transactional in the implementation.
type Store interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
	DeleteUser(ctx context.Context, id uint) error
	HasGrant(ctx context.Context, userID uint, name string) (bool, error)
	Revoke(ctx context.Context, userID uint, name string) error

	CreateRequest(ctx context.Context, req *models.AccessRequest) error
	RequestByID(ctx context.Context, id uint) (*models.AccessRequest, error)
	PendingRequest(ctx context.Context, userID uint, name string) (*models.AccessRequest, error)
	PendingRequests(ctx context.Context) ([]models.AccessRequest, error)
	ApproveRequest(ctx context.Context, req *models.AccessRequest) error
	RejectRequest(ctx context.Context, req *models.AccessRequest) error
	GrantDirect(ctx context.Context, userID uint, name string) error
}

// Workflow runs the state machine and its authorization rules.
type Workflow struct {
	store Store
}

// NewWorkflow wires the workflow to its store.
func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store}
}

// Request files a pending access request for the user. It fails softly
// when the permission is already held or an identical request is pending,
// so a double click never creates a second row.
func (w *Workflow) Request(ctx context.Context, user *models.User, name string) error {
	if !slices.Contains(Requestable, name) {
		return ErrUnknownPermission
	}
	held, err := w.store.HasGrant(ctx, user.ID, name)
	if err != nil {
		return err
	}
	if held {
		return ErrAlreadyGranted
	}
	pending, err := w.store.PendingRequest(ctx, user.ID, name)
	if err != nil {
		return err
	}
	if pending != nil {
		return ErrDuplicateRequest
	}
	return w.store.CreateRequest(ctx, &models.AccessRequest{
		UserID:     user.ID,
		Permission: name,
		Status:     models.RequestPending,
	})
}

// Pending lists the unresolved requests for the admin screen.
func (w *Workflow) Pending(ctx context.Context) ([]models.AccessRequest, error) {
	return w.store.PendingRequests(ctx)
}

// Approve resolves the request and grants the permission. The row stays in
// place as an audit trace.
func (w *Workflow) Approve(ctx context.Context, actor *models.User, reqID uint) (*models.AccessRequest, error) {
	req, err := w.resolvable(ctx, actor, reqID)
	if err != nil {
		return req, err
	}
	if err := w.store.ApproveRequest(ctx, req); err != nil {
		return req, err
	}
	return req, nil
}

// Reject resolves the request without touching the grant relation.
func (w *Workflow) Reject(ctx context.Context, actor *models.User, reqID uint) (*models.AccessRequest, error) {
	req, err := w.resolvable(ctx, actor, reqID)
	if err != nil {
		return req, err
	}
	if err := w.store.RejectRequest(ctx, req); err != nil {
		return req, err
	}
	return req, nil
}

// resolvable loads the request and applies the shared approve/reject
// preconditions: the request must still be pending, superadmin requests can
// never be acted on, and admin requests require a superadmin actor.
func (w *Workflow) resolvable(ctx context.Context, actor *models.User, reqID uint) (*models.AccessRequest, error) {
	req, err := w.store.RequestByID(ctx, reqID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	if req.Permission == models.PermSuperAdmin {
		return req, ErrSuperadminImmutable
	}
	if req.Permission == models.PermAdmin && !actor.HasPermission(models.PermSuperAdmin) {
		return req, ErrAdminScope
	}
	if req.Resolved() {
		return req, ErrAlreadyResolved
	}
	return req, nil
}

// ToggleDirect flips a grant outside the request workflow. Rule order
// matters: the superadmin name is untouchable, then the broad guard on
// privileged targets applies before any per-name rule.
//
// Returns the target user and whether the flip was a grant.
func (w *Workflow) ToggleDirect(ctx context.Context, actor *models.User, targetID uint, name string) (*models.User, bool, error) {
	if name == models.PermSuperAdmin {
		return nil, false, ErrSuperadminImmutable
	}
	target, err := w.store.UserByID(ctx, targetID)
	if err != nil {
		return nil, false, err
	}
	if target == nil {
		return nil, false, ErrNotFound
	}

	// A target already holding admin or superadmin is only editable by a
	// superadmin, whatever permission is being toggled.
	if target.ID != actor.ID &&
		(target.HasPermission(models.PermAdmin) || target.HasPermission(models.PermSuperAdmin)) &&
		!actor.HasPermission(models.PermSuperAdmin) {
		return target, false, ErrPrivilegedTarget
	}
	// Nobody strips their own admin grant.
	if target.ID == actor.ID && name == models.PermAdmin {
		return target, false, ErrSelfAdminRemoval
	}
	// The admin grant of another user is superadmin territory.
	if name == models.PermAdmin && target.ID != actor.ID &&
		!actor.HasPermission(models.PermSuperAdmin) {
		return target, false, ErrAdminScope
	}

	held, err := w.store.HasGrant(ctx, target.ID, name)
	if err != nil {
		return target, false, err
	}
	if held {
		return target, false, w.store.Revoke(ctx, target.ID, name)
	}
	// A direct grant also clears any pending request for the same pair.
	return target, true, w.store.GrantDirect(ctx, target.ID, name)
}

// DeleteUser removes an account. Self-deletion is refused, and only a
// superadmin may delete another administrator.
func (w *Workflow) DeleteUser(ctx context.Context, actor *models.User, targetID uint) (*models.User, error) {
	target, err := w.store.UserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if target.ID == actor.ID {
		return target, fmt.Errorf("vous ne pouvez pas vous supprimer vous-même: %w", ErrForbidden)
	}
	if !actor.HasPermission(models.PermSuperAdmin) &&
		(target.HasPermission(models.PermAdmin) || target.HasPermission(models.PermSuperAdmin)) {
		return target, ErrPrivilegedTarget
	}
	return target, w.store.DeleteUser(ctx, target.ID)
}
