package database

import (
	"context"
	"eduassist/internal/domain"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

func (d *Database) AddChatLog(ctx context.Context, entry *domain.ChatLog) error {
	if entry == nil {
		return errors.New("chat log is nil")
	}

	if strings.TrimSpace(entry.Query) == "" {
		return errors.New("chat log query is empty")
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `insert into chat_logs
	(user_id, role, query, response, course, topic, created_at)
	values (?, ?, ?, ?, ?, ?, ?)`

	res, err := d.db.ExecContext(ctx, query,
		entry.UserID,
		string(entry.Role),
		entry.Query,
		entry.Response,
		entry.Context.Course,
		entry.Context.Topic,
		entry.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	entry.ID = id

	return nil
}

// ListChatLogs returns the user's most recent entries, newest first. A
// non-positive limit means DefaultHistoryLimit.
func (d *Database) ListChatLogs(ctx context.Context, userID int64, limit int) ([]domain.ChatLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	query := `select id, user_id, role, query, response, course, topic, created_at
	from chat_logs
	where user_id = ?
	order by created_at desc, id desc
	limit ?`

	rows, err := d.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"userID", userID,
				"operation", "ListChatLogs")
		}
	}()

	logs := make([]domain.ChatLog, 0, limit)
	for rows.Next() {
		var (
			l           domain.ChatLog
			role        string
			createdAtMs int64
		)

		if err = rows.Scan(
			&l.ID,
			&l.UserID,
			&role,
			&l.Query,
			&l.Response,
			&l.Context.Course,
			&l.Context.Topic,
			&createdAtMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		l.Role = domain.Role(role)
		l.CreatedAt = time.UnixMilli(createdAtMs).UTC()

		logs = append(logs, l)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return logs, nil
}

// DeleteChatLogsBefore removes entries created strictly before t and returns
// how many were removed.
func (d *Database) DeleteChatLogsBefore(ctx context.Context, t time.Time) (int64, error) {
	query := "delete from chat_logs where created_at < ?"

	res, err := d.db.ExecContext(ctx, query, t.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete chat logs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return n, nil
}

func (d *Database) GetUserPreferencesWithDefault(
	ctx context.Context,
	userID int64,
) (*domain.UserPreferences, error) {
	query := `select user_id, default_role, enable_notifications, theme
	from user_preferences
	where user_id = ?`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() {
		if err = rows.Close(); err != nil {
			d.log.ErrorContext(ctx, "Failed to close rows",
				"error", err,
				"userID", userID,
				"operation", "GetUserPreferencesWithDefault")
		}
	}()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate rows: %w", err)
		}

		prefs := domain.DefaultUserPreferences(userID)

		return &prefs, nil
	}

	var (
		prefs domain.UserPreferences
		role  string
	)
	if err = rows.Scan(&prefs.UserID, &role, &prefs.EnableNotifications, &prefs.Theme); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	prefs.DefaultRole, _ = domain.ParseRole(role)

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return &prefs, nil
}

func (d *Database) UpsertUserPreferences(ctx context.Context, prefs *domain.UserPreferences) error {
	if prefs == nil {
		return errors.New("user preferences are nil")
	}

	role, ok := domain.ParseRole(string(prefs.DefaultRole))
	if !ok {
		return fmt.Errorf("unknown role %q", prefs.DefaultRole)
	}

	theme := strings.TrimSpace(prefs.Theme)
	if theme == "" {
		theme = domain.DefaultTheme
	}

	query := `insert into user_preferences (user_id, default_role, enable_notifications, theme)
	values (?, ?, ?, ?)
	on conflict (user_id) do update
	set default_role = excluded.default_role,
	enable_notifications = excluded.enable_notifications,
	theme = excluded.theme`

	if _, err := d.db.ExecContext(ctx, query, prefs.UserID, string(role), prefs.EnableNotifications, theme); err != nil {
		return fmt.Errorf("upsert user preferences: %w", err)
	}

	return nil
}
