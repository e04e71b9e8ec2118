// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package notify turns domain events into per-user in-app
// notifications.
//
// The service subscribes to the event emitter; recipients are resolved
// from project ownership, membership, and task assignment. Notification
// creation never fails an originating operation: errors are logged and
// dropped.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/synergyos/synergy/services/synergy/core"
	"github.com/synergyos/synergy/services/synergy/events"
)

// Notification types.
const (
	TypeTaskAssigned       = "task_assigned"
	TypeTaskCompleted      = "task_completed"
	TypeMilestoneCompleted = "milestone_completed"
	TypeMilestoneOverdue   = "milestone_overdue"
	TypeMemberAdded        = "member_added"
	TypeDigest             = "digest"
	TypeSystem             = "system"
)

// Notification is one in-app notification for a user.
type Notification struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Body   string `json:"body,omitempty"`

	// ResourceType/ResourceID link back to the triggering record.
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications.
type Store interface {
	SaveNotification(ctx context.Context, notification *Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// Service resolves event recipients and writes notifications.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	store  Store
	core   core.Store
	logger *slog.Logger
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a notification service. coreStore is used to
// resolve recipients (project owner, members, task assignee).
func NewService(store Store, coreStore core.Store, opts ...ServiceOption) *Service {
	s := &Service{store: store, core: coreStore, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Attach subscribes the service to the emitter's notification-relevant
// events. Returns the subscription id.
func (s *Service) Attach(emitter *events.Emitter) string {
	return emitter.Subscribe(s.HandleEvent,
		events.TypeTaskCompleted,
		events.TypeMilestoneCompleted,
		events.TypeMilestoneMissed,
	)
}

// HandleEvent translates one event into notifications for its
// audience.
func (s *Service) HandleEvent(event *events.Event) {
	ctx := context.Background()
	switch event.Type {
	case events.TypeTaskCompleted:
		data, ok := event.Data.(events.TaskEventData)
		if !ok {
			return
		}
		s.notifyProject(ctx, data.ProjectID, event.ActorID, &Notification{
			Type:         TypeTaskCompleted,
			Title:        fmt.Sprintf("Task completed: %s", data.Title),
			ResourceType: "task",
			ResourceID:   data.TaskID,
		})
	case events.TypeMilestoneCompleted:
		data, ok := event.Data.(events.MilestoneEventData)
		if !ok {
			return
		}
		s.notifyProject(ctx, data.ProjectID, event.ActorID, &Notification{
			Type:         TypeMilestoneCompleted,
			Title:        fmt.Sprintf("Milestone completed: %s", data.Name),
			ResourceType: "milestone",
			ResourceID:   data.MilestoneID,
		})
	case events.TypeMilestoneMissed:
		data, ok := event.Data.(events.MilestoneEventData)
		if !ok {
			return
		}
		s.notifyProject(ctx, data.ProjectID, event.ActorID, &Notification{
			Type:         TypeMilestoneOverdue,
			Title:        fmt.Sprintf("Milestone missed: %s", data.Name),
			Body:         fmt.Sprintf("Progress was %d%% at the due date.", data.Progress),
			ResourceType: "milestone",
			ResourceID:   data.MilestoneID,
		})
	}
}

// Notify writes a single notification directly. Used by the service
// layer for targeted notifications (assignment, member added) and by
// the digest job.
func (s *Service) Notify(ctx context.Context, notification *Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = s.now()
	}
	return s.store.SaveNotification(ctx, notification)
}

// Unread returns the user's unread notifications plus the total unread
// count.
func (s *Service) Unread(ctx context.Context, userID string, limit int) ([]*Notification, int, error) {
	list, err := s.store.ListNotifications(ctx, userID, true, limit)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, count, nil
}

// List returns the user's recent notifications, read or not.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	return s.store.ListNotifications(ctx, userID, false, limit)
}

// MarkRead marks one notification read for the user.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	return s.store.MarkRead(ctx, id, userID)
}

// MarkAllRead marks all of the user's notifications read and returns
// how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.store.MarkAllRead(ctx, userID)
}

// notifyProject fans one notification template out to the project's
// audience, skipping the actor who caused the event.
func (s *Service) notifyProject(ctx context.Context, projectID, actorID string, template *Notification) {
	project, err := s.core.GetProject(ctx, projectID)
	if err != nil {
		s.logger.Warn("notify: resolve project audience", "project_id", projectID, "error", err)
		return
	}

	recipients := map[string]bool{}
	if project.OwnerID != "" {
		recipients[project.OwnerID] = true
	}
	for _, member := range project.MemberIDs {
		recipients[member] = true
	}
	delete(recipients, actorID)

	for userID := range recipients {
		n := *template
		n.ID = uuid.NewString()
		n.UserID = userID
		n.CreatedAt = s.now()
		if err := s.store.SaveNotification(ctx, &n); err != nil {
			s.logger.Error("notify: save notification", "user_id", userID, "error", err)
		}
	}
}
