package models

import "time"

// User represents an operator account of the control panel.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Username  string    `gorm:"uniqueIndex;size:80;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:80;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"` // bcrypt hash, never exposed
	FirstName string    `gorm:"size:30" json:"first_name,omitempty"`
	LastName  string    `gorm:"size:30" json:"last_name,omitempty"`
	Active    bool      `gorm:"default:true" json:"active"`
	// Permissions currently granted to the user.
	// Many-to-many relationship via the user_permissions join table.
	Permissions []Permission `gorm:"many2many:user_permissions;" json:"permissions,omitempty"`
	// AccessRequests filed by this user, removed with the account.
	AccessRequests []AccessRequest `gorm:"constraint:OnDelete:CASCADE" json:"access_requests,omitempty"`
}

// HasPermission reports whether the loaded permission set contains name.
// Callers that did not preload Permissions should go through the identity
// service instead.
func (u *User) HasPermission(name string) bool {
	for _, p := range u.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// FullName returns "FirstName LastName" for display.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
