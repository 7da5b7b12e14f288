// Package store implements the persistence ports of the domain services
// on top of GORM. Each composite mutation runs in one transaction so the
// workflow transitions stay all-or-nothing.
package store

import "gorm.io/gorm"

// Store groups all repository methods around a single GORM connection.
type Store struct {
	db *gorm.DB
}

// New wraps a GORM connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}
