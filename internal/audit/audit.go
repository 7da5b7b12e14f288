// Package audit records connect/disconnect and view events in an
// append-only trail and answers "when was feature X last used, and by whom".
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ecurie-aix/rover-panel/internal/models"
	"github.com/ecurie-aix/rover-panel/internal/store"
)

// NoEvent is what LastEventFor returns for a feature nobody ever used.
const NoEvent = "Aucune"

// Store is the persistence port of the audit trail.
type Store interface {
	AppendConnection(ctx context.Context, row *models.ConnectionLog) error
	LastConnectionFor(ctx context.Context, feature string) (*models.ConnectionLog, error)
	SearchConnections(ctx context.Context, f store.ConnectionFilter) ([]models.ConnectionLog, int64, error)
}

// Log writes and reads the audit trail. Timestamps are stored in UTC and
// rendered in the display timezone for humans.
type Log struct {
	store    Store
	location *time.Location
}

// NewLog wires the audit log to its store. The display timezone falls back
// to UTC when the zone database lacks Europe/Paris.
func NewLog(s Store) *Log {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		loc = time.UTC
	}
	return &Log{store: s, location: loc}
}

// Record appends one event, snapshotting the username so the trail
// survives renames and account deletion.
func (l *Log) Record(ctx context.Context, user *models.User, feature, event string) error {
	return l.store.AppendConnection(ctx, &models.ConnectionLog{
		Feature:  feature,
		Event:    event,
		UserID:   user.ID,
		UserName: user.Username,
	})
}

// LastEventFor formats the most recent event for a feature, across all
// users, in the display timezone: "Le 02/01/2006 à 15:04:05 par bob".
func (l *Log) LastEventFor(ctx context.Context, feature string) (string, error) {
	row, err := l.store.LastConnectionFor(ctx, feature)
	if err != nil {
		return "", err
	}
	if row == nil {
		return NoEvent, nil
	}
	local := row.CreatedAt.In(l.location)
	return fmt.Sprintf("Le %s par %s", local.Format("02/01/2006 à 15:04:05"), row.UserName), nil
}

// Search pages through the trail for the history screen.
func (l *Log) Search(ctx context.Context, f store.ConnectionFilter) ([]models.ConnectionLog, int64, error) {
	return l.store.SearchConnections(ctx, f)
}

// Localize converts a stored timestamp to the display timezone.
func (l *Log) Localize(t time.Time) time.Time {
	return t.In(l.location)
}
