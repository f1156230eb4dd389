package database_test

import (
	"context"
	"eduassist/internal/database"
	"eduassist/internal/domain"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.sqlite")

	db, err := database.New(context.Background(), dbPath, slog.Default())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close database: %v", err)
		}
	})

	return db
}

func TestNewIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")

	for range 2 {
		db, err := database.New(context.Background(), dbPath, slog.Default())
		if err != nil {
			t.Fatalf("open database: %v", err)
		}

		if err = db.Close(); err != nil {
			t.Fatalf("close database: %v", err)
		}
	}
}

func TestChatLogsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, q := range []string{"first", "second", "third"} {
		entry := &domain.ChatLog{
			UserID:    7,
			Role:      domain.RoleLecturer,
			Query:     q,
			Response:  "answer " + q,
			Context:   domain.QueryContext{Course: "CS101"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}

		if err := db.AddChatLog(ctx, entry); err != nil {
			t.Fatalf("add chat log: %v", err)
		}

		if entry.ID == 0 {
			t.Fatalf("expected id to be assigned")
		}
	}

	if err := db.AddChatLog(ctx, &domain.ChatLog{UserID: 8, Query: "other"}); err != nil {
		t.Fatalf("add chat log: %v", err)
	}

	logs, err := db.ListChatLogs(ctx, 7, 2)
	if err != nil {
		t.Fatalf("list chat logs: %v", err)
	}

	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}

	if logs[0].Query != "third" || logs[1].Query != "second" {
		t.Fatalf("expected newest first, got %q, %q", logs[0].Query, logs[1].Query)
	}

	if logs[0].Role != domain.RoleLecturer || logs[0].Context.Course != "CS101" {
		t.Fatalf("unexpected log fields: %+v", logs[0])
	}

	if !logs[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("unexpected created at: %v", logs[0].CreatedAt)
	}
}

func TestAddChatLogRejectsEmptyQuery(t *testing.T) {
	db := newTestDatabase(t)

	if err := db.AddChatLog(context.Background(), &domain.ChatLog{UserID: 1, Query: "  "}); err == nil {
		t.Fatalf("expected error for empty query")
	}
}

func TestDeleteChatLogsBefore(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	cutoff := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{cutoff.Add(-time.Hour), cutoff, cutoff.Add(time.Hour)} {
		if err := db.AddChatLog(ctx, &domain.ChatLog{UserID: 1, Query: "q", CreatedAt: at}); err != nil {
			t.Fatalf("add chat log: %v", err)
		}
	}

	deleted, err := db.DeleteChatLogsBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("delete chat logs: %v", err)
	}

	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %d", deleted)
	}

	logs, err := db.ListChatLogs(ctx, 1, 0)
	if err != nil {
		t.Fatalf("list chat logs: %v", err)
	}

	if len(logs) != 2 {
		t.Fatalf("expected 2 remaining logs, got %d", len(logs))
	}
}

func TestUserPreferencesDefaultAndUpsert(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	prefs, err := db.GetUserPreferencesWithDefault(ctx, 42)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}

	if *prefs != domain.DefaultUserPreferences(42) {
		t.Fatalf("unexpected default preferences: %+v", prefs)
	}

	prefs.DefaultRole = domain.RoleAdmin
	prefs.EnableNotifications = false
	prefs.Theme = "dark"

	if err = db.UpsertUserPreferences(ctx, prefs); err != nil {
		t.Fatalf("upsert preferences: %v", err)
	}

	prefs.DefaultRole = domain.RoleLecturer
	if err = db.UpsertUserPreferences(ctx, prefs); err != nil {
		t.Fatalf("upsert preferences: %v", err)
	}

	got, err := db.GetUserPreferencesWithDefault(ctx, 42)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}

	want := domain.UserPreferences{
		UserID:              42,
		DefaultRole:         domain.RoleLecturer,
		EnableNotifications: false,
		Theme:               "dark",
	}
	if *got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestUpsertUserPreferencesRejectsUnknownRole(t *testing.T) {
	db := newTestDatabase(t)

	prefs := domain.DefaultUserPreferences(1)
	prefs.DefaultRole = "dean"

	if err := db.UpsertUserPreferences(context.Background(), &prefs); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
