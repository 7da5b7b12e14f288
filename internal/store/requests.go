package store

import (
	"context"
	"errors"

	"github.com/ecurie-aix/rover-panel/internal/models"
	"gorm.io/gorm"
)

// CreateRequest inserts a new pending access request.
func (s *Store) CreateRequest(ctx context.Context, req *models.AccessRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

// RequestByID loads a request with its requesting user (and the user's
// permissions, needed by the authorization rules). Returns (nil, nil) when
// the id is unknown.
func (s *Store) RequestByID(ctx context.Context, id uint) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := s.db.WithContext(ctx).Preload("User.Permissions").First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// PendingRequest returns the pending request for (userID, permission name),
// or (nil, nil) when there is none.
func (s *Store) PendingRequest(ctx context.Context, userID uint, name string) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND permission = ? AND status = ?", userID, name, models.RequestPending).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// PendingRequests lists every unresolved request, oldest first.
func (s *Store) PendingRequests(ctx context.Context) ([]models.AccessRequest, error) {
	var reqs []models.AccessRequest
	err := s.db.WithContext(ctx).Preload("User").
		Where("status = ?", models.RequestPending).
		Order("created_at").Find(&reqs).Error
	return reqs, err
}

// ApproveRequest flips the request to approved and grants the permission in
// one transaction. The row is kept as an audit trace.
func (s *Store) ApproveRequest(ctx context.Context, req *models.AccessRequest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AccessRequest{}).Where("id = ?", req.ID).
			Update("status", models.RequestApproved).Error; err != nil {
			return err
		}
		if err := grantTx(tx, req.UserID, req.Permission); err != nil {
			return err
		}
		req.Status = models.RequestApproved
		return nil
	})
}

// RejectRequest flips the request to rejected. No grant side effect.
func (s *Store) RejectRequest(ctx context.Context, req *models.AccessRequest) error {
	err := s.db.WithContext(ctx).Model(&models.AccessRequest{}).Where("id = ?", req.ID).
		Update("status", models.RequestRejected).Error
	if err == nil {
		req.Status = models.RequestRejected
	}
	return err
}

// GrantDirect grants the permission outside the request workflow and deletes
// any pending request for the same pair, resolved by side channel.
func (s *Store) GrantDirect(ctx context.Context, userID uint, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := grantTx(tx, userID, name); err != nil {
			return err
		}
		return tx.Where("user_id = ? AND permission = ? AND status = ?",
			userID, name, models.RequestPending).
			Delete(&models.AccessRequest{}).Error
	})
}
