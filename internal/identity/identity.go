// Package identity holds the user and permission store: authentication,
// registration and the grant relation every authorization check relies on.
package identity

import (
	"context"
	"errors"

	"github.com/ecurie-aix/rover-panel/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors surfaced to the user as notices, never fatal.
var (
	ErrInvalidCredentials = errors.New("identifiants invalides")
	ErrDuplicateUsername  = errors.New("nom d'utilisateur déjà pris")
	ErrDuplicateEmail     = errors.New("email déjà utilisé")
)

// Store is the persistence port of the service.
type Store interface {
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uint) error
	ListUsers(ctx context.Context) ([]models.User, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	HasGrant(ctx context.Context, userID uint, name string) (bool, error)
	Grant(ctx context.Context, userID uint, name string) error
	Revoke(ctx context.Context, userID uint, name string) error
}

// Service evaluates credentials and permission grants.
type Service struct {
	store Store
}

// NewService wires the service to its store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Authenticate verifies username + password. It returns
// ErrInvalidCredentials for an unknown user, a wrong password or an
// inactive account, without revealing which factor failed. The bcrypt
// comparison runs even for unknown users so both paths take similar time.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	hash := dummyHash
	if user != nil {
		hash = user.Password
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user == nil || !user.Active {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// dummyHash keeps Authenticate's timing stable for unknown usernames.
// It is the bcrypt hash of an unguessable throwaway value.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Register creates an active account with a freshly hashed password.
// Username and email uniqueness are checked before insertion.
func (s *Service) Register(ctx context.Context, username, email, password, firstName, lastName string) (*models.User, error) {
	if existing, err := s.store.UserByUsername(ctx, username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateUsername
	}
	if existing, err := s.store.UserByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  string(hash),
		FirstName: firstName,
		LastName:  lastName,
		Active:    true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetPassword replaces the stored hash.
func (s *Service) SetPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hash)
	return s.store.SaveUser(ctx, user)
}

// HasPermission reports whether a grant row exists for (user, name).
func (s *Service) HasPermission(ctx context.Context, userID uint, name string) (bool, error) {
	return s.store.HasGrant(ctx, userID, name)
}

// Grant gives the user the named permission, creating the permission row
// if needed. Idempotent.
func (s *Service) Grant(ctx context.Context, userID uint, name string) error {
	return s.store.Grant(ctx, userID, name)
}

// Revoke withdraws the named permission. Idempotent.
func (s *Service) Revoke(ctx context.Context, userID uint, name string) error {
	return s.store.Revoke(ctx, userID, name)
}

// UserByID exposes the store lookup for session verification and handlers.
func (s *Service) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.store.UserByID(ctx, id)
}

// UpdateProfile changes username and email, re-checking uniqueness against
// other accounts.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, username, email string) error {
	if other, err := s.store.UserByUsername(ctx, username); err != nil {
		return err
	} else if other != nil && other.ID != user.ID {
		return ErrDuplicateUsername
	}
	if other, err := s.store.UserByEmail(ctx, email); err != nil {
		return err
	} else if other != nil && other.ID != user.ID {
		return ErrDuplicateEmail
	}
	user.Username = username
	user.Email = email
	return s.store.SaveUser(ctx, user)
}

// ListUsers returns every account with its permission set.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// ListPermissions returns every known permission.
func (s *Service) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.store.ListPermissions(ctx)
}
