// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import (
	"context"
	"time"
)

// Comment is a discussion entry on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Activity is one audit-trail entry on a project.
//
// Activities are append-only: the service records one per mutating
// operation so project history can be reconstructed.
type Activity struct {
	ID         int64     `json:"id"`
	ProjectID  string    `json:"project_id"`
	ActorID    string    `json:"actor_id"`
	Verb       string    `json:"verb"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Attachment is file metadata attached to a task. Binary content lives
// outside the system; only the reference is stored.
type Attachment struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommentStore persists task comments.
type CommentStore interface {
	SaveComment(ctx context.Context, comment *Comment) error
	GetComment(ctx context.Context, id string) (*Comment, error)
	ListComments(ctx context.Context, taskID string) ([]*Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// ActivityStore persists the per-project audit trail.
type ActivityStore interface {
	AppendActivity(ctx context.Context, activity *Activity) error
	ListActivities(ctx context.Context, projectID string, limit int) ([]*Activity, error)
}

// AttachmentStore persists task attachment metadata.
type AttachmentStore interface {
	SaveAttachment(ctx context.Context, attachment *Attachment) error
	ListAttachments(ctx context.Context, taskID string) ([]*Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}
