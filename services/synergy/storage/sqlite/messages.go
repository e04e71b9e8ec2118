// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/synergyos/synergy/services/synergy/messages"
)

const messageColumns = `id, project_id, author_id, body, parent_id, mentions, edited, created_at, updated_at`

// SaveMessage inserts or updates a message.
func (s *Store) SaveMessage(ctx context.Context, m *messages.Message) error {
	mentions, err := json.Marshal(m.Mentions)
	if err != nil {
		return fmt.Errorf("sqlite: encode mentions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			mentions = excluded.mentions,
			edited = excluded.edited,
			updated_at = excluded.updated_at`,
		m.ID, m.ProjectID, m.AuthorID, m.Body, m.ParentID, string(mentions),
		boolToInt(m.Edited), encodeTime(m.CreatedAt), encodeTime(m.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: save message: %w", err)
	}
	return nil
}

// GetMessage returns one message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*messages.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, messages.ErrMessageNotFound
	}
	return m, err
}

// ListMessages returns a project's messages oldest first.
func (s *Store) ListMessages(ctx context.Context, projectID string, limit int) ([]*messages.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE project_id = ?
		ORDER BY created_at, id
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list messages: %w", err)
	}
	defer rows.Close()

	var out []*messages.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMessage removes a message; read receipts cascade.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return messages.ErrMessageNotFound
	}
	return nil
}

// MarkMessageRead records a read receipt; re-reads keep the first
// timestamp.
func (s *Store) MarkMessageRead(ctx context.Context, messageID, userID string, readAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id, user_id) DO NOTHING`,
		messageID, userID, encodeTime(readAt))
	if err != nil {
		return fmt.Errorf("sqlite: mark message read: %w", err)
	}
	return nil
}

// CountUnreadMessages counts messages on the project that userID has
// neither written nor read.
func (s *Store) CountUnreadMessages(ctx context.Context, projectID, userID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		WHERE m.project_id = ?
		  AND m.author_id != ?
		  AND NOT EXISTS (
			SELECT 1 FROM message_reads r
			WHERE r.message_id = m.id AND r.user_id = ?
		  )`, projectID, userID, userID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count unread messages: %w", err)
	}
	return n, nil
}

func scanMessage(row rowScanner) (*messages.Message, error) {
	var (
		m                    messages.Message
		mentions             string
		edited               int
		createdAt, updatedAt string
	)
	err := row.Scan(&m.ID, &m.ProjectID, &m.AuthorID, &m.Body, &m.ParentID,
		&mentions, &edited, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mentions), &m.Mentions); err != nil {
		return nil, fmt.Errorf("sqlite: decode mentions: %w", err)
	}
	m.Edited = edited != 0
	if m.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
