// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package messages implements per-project team chat: threaded
// messages with mentions and per-user read tracking, fanned out live
// to websocket subscribers through a Hub.
package messages

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMessageNotFound is returned for unknown message IDs.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotAuthor is returned when a user edits or deletes a message
	// they did not write.
	ErrNotAuthor = errors.New("not the message author")

	// ErrNotMember is returned when the poster is not on the project.
	ErrNotMember = errors.New("not a project member")

	// ErrEmptyBody is returned for blank message bodies.
	ErrEmptyBody = errors.New("message body is empty")
)

// Message is one chat message on a project.
type Message struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`

	// ParentID threads replies; empty for top-level messages.
	ParentID string `json:"parent_id,omitempty"`

	// Mentions are user IDs called out in the message.
	Mentions []string `json:"mentions,omitempty"`

	Edited    bool      `json:"edited"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists messages and read receipts.
type Store interface {
	SaveMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListMessages returns a project's messages oldest first, capped
	// at limit (a non-positive limit uses the store default).
	ListMessages(ctx context.Context, projectID string, limit int) ([]*Message, error)

	DeleteMessage(ctx context.Context, id string) error

	// MarkMessageRead records a read receipt; re-reads are no-ops.
	MarkMessageRead(ctx context.Context, messageID, userID string, readAt time.Time) error

	// CountUnreadMessages counts a project's messages with no read
	// receipt from userID, excluding the user's own messages.
	CountUnreadMessages(ctx context.Context, projectID, userID string) (int, error)
}
