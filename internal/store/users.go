package store

import (
	"context"
	"errors"

	"github.com/ecurie-aix/rover-panel/internal/models"
	"gorm.io/gorm"
)

// UserByID loads a user with their permission set. Returns (nil, nil) when
// the id is unknown.
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Permissions").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByUsername loads a user by exact username, permissions included.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Permissions").
		Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserByEmail loads a user by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// SaveUser persists profile edits.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// DeleteUser removes a user and their access requests.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.AccessRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{ID: id}).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

// ListUsers returns all users with their permissions, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Preload("Permissions").Order("id").Find(&users).Error
	return users, err
}

// ListPermissions returns every known permission.
func (s *Store) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := s.db.WithContext(ctx).Order("id").Find(&perms).Error
	return perms, err
}

// HasGrant reports whether a grant row exists for (userID, permission name).
func (s *Store) HasGrant(ctx context.Context, userID uint, name string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Permission{}).
		Joins("JOIN user_permissions up ON up.permission_id = permissions.id").
		Where("up.user_id = ? AND permissions.name = ?", userID, name).
		Count(&n).Error
	return n > 0, err
}

// Grant adds the permission to the user, creating the permission row if it
// does not exist yet. Granting an already-held permission is a no-op.
func (s *Store) Grant(ctx context.Context, userID uint, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return grantTx(tx, userID, name)
	})
}

// Revoke removes the permission from the user. Unknown names are a no-op.
func (s *Store) Revoke(ctx context.Context, userID uint, name string) error {
	var perm models.Permission
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{ID: userID}).
		Association("Permissions").Delete(&perm)
}

// grantTx materializes the permission row and appends the join row inside
// an existing transaction. GORM upserts the join pair, so repeats are safe.
func grantTx(tx *gorm.DB, userID uint, name string) error {
	perm := models.Permission{Name: name}
	if err := tx.Where("name = ?", name).FirstOrCreate(&perm).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{ID: userID}).Association("Permissions").Append(&perm)
}
