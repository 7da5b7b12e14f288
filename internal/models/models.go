package models

import "time"

// Permission is a named capability tag ("dashboard", "pilotage", ...).
// Rows are created lazily the first time a name is granted or requested.
type Permission struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:80;not null" json:"name"`
}

// Well-known permission names.
const (
	PermDashboard  = "dashboard"
	PermPilotage   = "pilotage"
	PermHistorique = "historique"
	PermAdmin      = "admin"
	PermSuperAdmin = "superadmin"
)

// AccessRequest status values. Pending is the initial state; the two
// others are terminal.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// AccessRequest is a user's ask for a permission, resolved by an admin.
type AccessRequest struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index;not null" json:"user_id"`
	User       *User     `json:"user,omitempty"`
	Permission string    `gorm:"size:50;not null" json:"permission"`
	Status     string    `gorm:"size:20;not null;default:pending" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Resolved reports whether the request reached a terminal status.
func (r *AccessRequest) Resolved() bool {
	return r.Status != RequestPending
}

// ConnectionLog is an append-only audit row. UserName is snapshotted at
// write time so history survives renames and account deletion.
type ConnectionLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Feature   string    `gorm:"size:50;not null;index" json:"feature"` // "site", "dashboard", ...
	Event     string    `gorm:"size:20;not null" json:"event"`         // "connexion", "déconnexion", "view_maps", ...
	UserID    uint      `gorm:"not null" json:"user_id"`
	UserName  string    `gorm:"size:80;not null" json:"user_name"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// RaceLog records one ride of the vehicle for the history page.
type RaceLog struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	RaceName  string     `gorm:"size:100;not null" json:"race_name"`
	StartTime time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	UserID   uint   `gorm:"not null" json:"user_id"`
	UserName string `gorm:"size:80;not null" json:"user_name"`

	AverageSpeed float64 `json:"average_speed"` // km/h
	MaxSpeed     float64 `json:"max_speed"`     // km/h
	Distance     float64 `json:"distance"`      // km

	WeatherConditions string `gorm:"size:50" json:"weather_conditions,omitempty"`
	TrackConditions   string `gorm:"size:50" json:"track_conditions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Duration returns the ride duration, or zero while the ride is ongoing.
func (r *RaceLog) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Finished reports whether the ride has an end time.
func (r *RaceLog) Finished() bool {
	return r.EndTime != nil
}
