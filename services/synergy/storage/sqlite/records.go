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
	"errors"
	"fmt"

	"github.com/synergyos/synergy/services/synergy/core"
)

// SaveComment inserts or replaces a comment.
func (s *Store) SaveComment(ctx context.Context, comment *core.Comment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO comments
		(id, task_id, author_id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		comment.ID, comment.TaskID, comment.AuthorID, comment.Body,
		encodeTime(comment.CreatedAt), encodeTime(comment.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save comment: %w", err)
	}
	return nil
}

// GetComment returns the comment with the given id.
func (s *Store) GetComment(ctx context.Context, id string) (*core.Comment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, author_id, body, created_at, updated_at
		 FROM comments WHERE id = ?`, id)
	comment, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCommentNotFound
	}
	return comment, err
}

// ListComments returns a task's comments in creation order.
func (s *Store) ListComments(ctx context.Context, taskID string) ([]*core.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, author_id, body, created_at, updated_at
		 FROM comments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*core.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrCommentNotFound
	}
	return nil
}

// AppendActivity records one audit-trail entry.
func (s *Store) AppendActivity(ctx context.Context, activity *core.Activity) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO activities
		(project_id, actor_id, verb, target_type, target_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.ProjectID, activity.ActorID, activity.Verb,
		activity.TargetType, activity.TargetID, activity.Detail,
		encodeTime(activity.CreatedAt))
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	activity.ID, err = res.LastInsertId()
	return err
}

// ListActivities returns a project's most recent activities, newest
// first. limit <= 0 means a default page of 50.
func (s *Store) ListActivities(ctx context.Context, projectID string, limit int) ([]*core.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, actor_id, verb, target_type, target_id, detail, created_at
		 FROM activities WHERE project_id = ? ORDER BY id DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []*core.Activity
	for rows.Next() {
		var (
			a            core.Activity
			createdAtRaw string
		)
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.ActorID, &a.Verb,
			&a.TargetType, &a.TargetID, &a.Detail, &createdAtRaw); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
			return nil, err
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

// SaveAttachment inserts or replaces attachment metadata.
func (s *Store) SaveAttachment(ctx context.Context, attachment *core.Attachment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO attachments
		(id, task_id, file_name, content_type, size_bytes, url, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			content_type = excluded.content_type,
			size_bytes = excluded.size_bytes,
			url = excluded.url`,
		attachment.ID, attachment.TaskID, attachment.FileName,
		attachment.ContentType, attachment.SizeBytes, attachment.URL,
		attachment.UploadedBy, encodeTime(attachment.CreatedAt))
	if err != nil {
		return fmt.Errorf("save attachment: %w", err)
	}
	return nil
}

// ListAttachments returns a task's attachments in upload order.
func (s *Store) ListAttachments(ctx context.Context, taskID string) ([]*core.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, file_name, content_type, size_bytes, url, uploaded_by, created_at
		 FROM attachments WHERE task_id = ? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*core.Attachment
	for rows.Next() {
		var (
			a            core.Attachment
			createdAtRaw string
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.FileName, &a.ContentType,
			&a.SizeBytes, &a.URL, &a.UploadedBy, &createdAtRaw); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
			return nil, err
		}
		attachments = append(attachments, &a)
	}
	return attachments, rows.Err()
}

// DeleteAttachment removes attachment metadata.
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrAttachmentNotFound
	}
	return nil
}

func scanComment(row rowScanner) (*core.Comment, error) {
	var (
		comment                    core.Comment
		createdAtRaw, updatedAtRaw string
	)
	err := row.Scan(&comment.ID, &comment.TaskID, &comment.AuthorID,
		&comment.Body, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		return nil, err
	}
	if comment.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
		return nil, err
	}
	if comment.UpdatedAt, err = decodeTime(updatedAtRaw); err != nil {
		return nil, err
	}
	return &comment, nil
}
