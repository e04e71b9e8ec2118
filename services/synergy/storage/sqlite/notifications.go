// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sqlite

import (
	"context"
	"fmt"

	"github.com/synergyos/synergy/services/synergy/notify"
)

// SaveNotification inserts a notification.
func (s *Store) SaveNotification(ctx context.Context, n *notify.Notification) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO notifications
		(id, user_id, type, title, body, resource_type, resource_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET read = excluded.read`,
		n.ID, n.UserID, n.Type, n.Title, n.Body,
		n.ResourceType, n.ResourceID, boolToInt(n.Read), encodeTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
// limit <= 0 means a default page of 50.
func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*notify.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, user_id, type, title, body, resource_type, resource_id, read, created_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*notify.Notification
	for rows.Next() {
		var (
			n            notify.Notification
			read         int
			createdAtRaw string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body,
			&n.ResourceType, &n.ResourceID, &read, &createdAtRaw); err != nil {
			return nil, err
		}
		n.Read = read != 0
		if n.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// CountUnread returns the user's unread notification count.
func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`,
		userID).Scan(&count)
	return count, err
}

// MarkRead marks one of the user's notifications read. Marking an
// already-read or unknown notification is a no-op.
func (s *Store) MarkRead(ctx context.Context, id, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		id, userID)
	return err
}

// MarkAllRead marks all of the user's notifications read and returns
// how many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`,
		userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
