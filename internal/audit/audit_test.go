package audit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ecurie-aix/rover-panel/internal/models"
	"github.com/ecurie-aix/rover-panel/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLog(t *testing.T) (*Log, *store.Store) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ConnectionLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.New(db)
	return NewLog(st), st
}

func TestLastEventForEmptyFeature(t *testing.T) {
	l, _ := setupLog(t)
	got, err := l.LastEventFor(context.Background(), "dashboard")
	if err != nil {
		t.Fatalf("last event: %v", err)
	}
	if got != NoEvent {
		t.Fatalf("expected %q got %q", NoEvent, got)
	}
}

func TestLastEventForPicksNewestAcrossUsers(t *testing.T) {
	l, st := setupLog(t)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	rows := []models.ConnectionLog{
		{Feature: "dashboard", Event: "connexion", UserID: 1, UserName: "alice", CreatedAt: t1},
		{Feature: "dashboard", Event: "connexion", UserID: 2, UserName: "bob", CreatedAt: t2},
		{Feature: "site", Event: "connexion", UserID: 3, UserName: "carol", CreatedAt: t2.Add(time.Hour)},
	}
	for i := range rows {
		if err := st.AppendConnection(ctx, &rows[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := l.LastEventFor(ctx, "dashboard")
	if err != nil {
		t.Fatalf("last event: %v", err)
	}
	want := fmt.Sprintf("Le %s par bob", l.Localize(t2).Format("02/01/2006 à 15:04:05"))
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
	if !strings.HasPrefix(got, "Le ") || !strings.HasSuffix(got, "par bob") {
		t.Fatalf("unexpected format: %q", got)
	}
}

func TestRecordSnapshotsUsername(t *testing.T) {
	l, st := setupLog(t)
	ctx := context.Background()

	user := &models.User{Username: "dave"}
	user.ID = 7
	if err := l.Record(ctx, user, "site", "connexion"); err != nil {
		t.Fatalf("record: %v", err)
	}

	row, err := st.LastConnectionFor(ctx, "site")
	if err != nil || row == nil {
		t.Fatalf("expected row, err=%v", err)
	}
	if row.UserName != "dave" || row.UserID != 7 || row.Event != "connexion" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestSearchFiltersAndPaginates(t *testing.T) {
	l, st := setupLog(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		event := "connexion"
		if i%2 == 1 {
			event = "déconnexion"
		}
		row := models.ConnectionLog{
			Feature:   "site",
			Event:     event,
			UserID:    1,
			UserName:  "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.AppendConnection(ctx, &row); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rows, total, err := l.Search(ctx, store.ConnectionFilter{Feature: "site", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 15 || len(rows) != 10 {
		t.Fatalf("expected total 15 page of 10, got total=%d len=%d", total, len(rows))
	}
	// Newest first.
	if !rows[0].CreatedAt.After(rows[1].CreatedAt) {
		t.Fatalf("expected newest first: %v then %v", rows[0].CreatedAt, rows[1].CreatedAt)
	}

	rows, total, err = l.Search(ctx, store.ConnectionFilter{Feature: "site", Event: "déconnexion", Page: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("search by event: %v", err)
	}
	if total != 7 {
		t.Fatalf("expected 7 déconnexion rows got %d", total)
	}
	for _, r := range rows {
		if r.Event != "déconnexion" {
			t.Fatalf("filter leaked event %q", r.Event)
		}
	}
}
