// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package events provides typed domain events for SynergyOS.
//
// The core engine emits events when stored values change (task completed,
// progress recomputed, milestone transitions). Surrounding subsystems
// (notifications, webhooks, digests) subscribe to the emitter; the core
// itself has no knowledge of those consumers.
package events

import (
	"time"
)

// Type identifies a domain event.
type Type string

const (
	// TypeProjectCreated fires when a project is created.
	TypeProjectCreated Type = "project.created"

	// TypeProjectUpdated fires when a project's fields change.
	TypeProjectUpdated Type = "project.updated"

	// TypeProjectDeleted fires when a project is deleted.
	TypeProjectDeleted Type = "project.deleted"

	// TypeTaskCreated fires when a task is created.
	TypeTaskCreated Type = "task.created"

	// TypeTaskUpdated fires when a task's fields change.
	TypeTaskUpdated Type = "task.updated"

	// TypeTaskCompleted fires when a task transitions into done.
	TypeTaskCompleted Type = "task.completed"

	// TypeTaskDeleted fires when a task is deleted.
	TypeTaskDeleted Type = "task.deleted"

	// TypeProgressChanged fires when a recomputation changes a project's
	// stored progress value. Unchanged recomputations do not fire.
	TypeProgressChanged Type = "progress.changed"

	// TypeMilestoneCompleted fires when a milestone reaches 100%.
	TypeMilestoneCompleted Type = "milestone.completed"

	// TypeMilestoneMissed fires when a milestone passes its due date
	// without completing.
	TypeMilestoneMissed Type = "milestone.missed"

	// TypeCommentCreated fires when a comment is added to a task.
	TypeCommentCreated Type = "comment.created"

	// TypeMessagePosted fires when a message is posted to a project board.
	TypeMessagePosted Type = "message.posted"
)

// Event is a single domain event delivered to subscribers.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`

	// Type is the event type.
	Type Type `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// ActorID is the user who triggered the event, if known.
	ActorID string `json:"actor_id,omitempty"`

	// Data is the event-specific payload (use the typed data structs below).
	Data any `json:"data"`
}

// TaskEventData is the payload for task.* events.
type TaskEventData struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
}

// ProjectEventData is the payload for project.* events.
type ProjectEventData struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

// ProgressChangedData is the payload for progress.changed events.
type ProgressChangedData struct {
	ProjectID   string `json:"project_id"`
	OldProgress int    `json:"old_progress"`
	NewProgress int    `json:"new_progress"`
}

// MilestoneEventData is the payload for milestone.* events.
type MilestoneEventData struct {
	MilestoneID string `json:"milestone_id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Progress    int    `json:"progress"`
	Status      string `json:"status"`
}

// CommentEventData is the payload for comment.created events.
type CommentEventData struct {
	CommentID string `json:"comment_id"`
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	AuthorID  string `json:"author_id"`
}

// MessageEventData is the payload for message.posted events.
type MessageEventData struct {
	MessageID string `json:"message_id"`
	ProjectID string `json:"project_id"`
	AuthorID  string `json:"author_id"`
}
