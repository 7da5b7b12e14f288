package store

import (
	"context"
	"errors"
	"time"

	"github.com/ecurie-aix/rover-panel/internal/models"
	"gorm.io/gorm"
)

// AppendConnection writes one audit row. Rows are never updated or deleted.
func (s *Store) AppendConnection(ctx context.Context, row *models.ConnectionLog) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// LastConnectionFor returns the most recent audit row for a feature across
// all users, or (nil, nil) when the feature was never used.
func (s *Store) LastConnectionFor(ctx context.Context, feature string) (*models.ConnectionLog, error) {
	var row models.ConnectionLog
	err := s.db.WithContext(ctx).Where("feature = ?", feature).
		Order("created_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ConnectionFilter narrows and paginates the connection history listing.
type ConnectionFilter struct {
	Feature string // exact feature, empty for all
	Query   string // substring of the username snapshot
	Event   string // exact event type
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// SearchConnections returns one page of audit rows, newest first, plus the
// total match count for pagination.
func (s *Store) SearchConnections(ctx context.Context, f ConnectionFilter) ([]models.ConnectionLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.ConnectionLog{})
	if f.Feature != "" {
		q = q.Where("feature = ?", f.Feature)
	}
	if f.Query != "" {
		q = q.Where("user_name LIKE ?", "%"+f.Query+"%")
	}
	if f.Event != "" {
		q = q.Where("event = ?", f.Event)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, perPage := normalizePage(f.Page, f.PerPage)
	var rows []models.ConnectionLog
	err := q.Order("created_at DESC").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&rows).Error
	return rows, total, err
}

// RaceFilter narrows and paginates the ride history listing.
type RaceFilter struct {
	Query    string // substring of ride name or pilot name
	Type     string // substring of the ride name
	Finished *bool  // nil for all, true for finished, false for ongoing
	From     *time.Time
	To       *time.Time
	Page     int
	PerPage  int
}

// CreateRace inserts a ride record.
func (s *Store) CreateRace(ctx context.Context, race *models.RaceLog) error {
	return s.db.WithContext(ctx).Create(race).Error
}

// SearchRaces returns one page of ride records, most recent start first.
func (s *Store) SearchRaces(ctx context.Context, f RaceFilter) ([]models.RaceLog, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.RaceLog{})
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where("race_name LIKE ? OR user_name LIKE ?", like, like)
	}
	if f.Type != "" {
		q = q.Where("race_name LIKE ?", "%"+f.Type+"%")
	}
	if f.Finished != nil {
		if *f.Finished {
			q = q.Where("end_time IS NOT NULL")
		} else {
			q = q.Where("end_time IS NULL")
		}
	}
	if f.From != nil {
		q = q.Where("start_time >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_time <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, perPage := normalizePage(f.Page, f.PerPage)
	var rows []models.RaceLog
	err := q.Order("start_time DESC").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&rows).Error
	return rows, total, err
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}
