// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package messages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/synergyos/synergy/services/synergy/core"
	"github.com/synergyos/synergy/services/synergy/events"
)

// Service posts, edits, and reads project messages.
type Service struct {
	store   Store
	core    core.Store
	hub     *Hub
	emitter events.Publisher
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHub attaches a websocket hub; posted and edited messages are
// broadcast to the project's subscribers.
func WithHub(hub *Hub) Option {
	return func(s *Service) { s.hub = hub }
}

// WithEmitter attaches an event publisher for message.posted events.
func WithEmitter(emitter events.Publisher) Option {
	return func(s *Service) { s.emitter = emitter }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a message service over the given stores.
func NewService(store Store, coreStore core.Store, opts ...Option) *Service {
	s := &Service{store: store, core: coreStore}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PostRequest carries a new message.
type PostRequest struct {
	ProjectID string
	AuthorID  string
	Body      string
	ParentID  string
	Mentions  []string
}

// Post validates and stores a message, then fans it out.
//
// Description: The author must be the project owner or a member, the
// body must be non-blank, and a reply's parent must exist on the same
// project. Mentions are filtered to project members. On success the
// message is broadcast to the project's websocket room and a
// message.posted event is emitted.
// Inputs: ctx - request context. req - message fields.
// Outputs: the stored message, or ErrNotMember / ErrEmptyBody /
// ErrMessageNotFound (bad parent) / core.ErrProjectNotFound.
func (s *Service) Post(ctx context.Context, req PostRequest) (*Message, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, ErrEmptyBody
	}
	project, err := s.core.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(req.AuthorID) {
		return nil, ErrNotMember
	}
	if req.ParentID != "" {
		parent, err := s.store.GetMessage(ctx, req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent message: %w", err)
		}
		if parent.ProjectID != req.ProjectID {
			return nil, fmt.Errorf("parent message: %w", ErrMessageNotFound)
		}
	}

	mentions := make([]string, 0, len(req.Mentions))
	for _, userID := range req.Mentions {
		if project.HasMember(userID) {
			mentions = append(mentions, userID)
		}
	}

	now := s.now()
	msg := &Message{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		AuthorID:  req.AuthorID,
		Body:      req.Body,
		ParentID:  req.ParentID,
		Mentions:  mentions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.broadcast("message.posted", msg)
	if s.emitter != nil {
		s.emitter.Emit(events.TypeMessagePosted, req.AuthorID, events.MessageEventData{
			MessageID: msg.ID,
			ProjectID: msg.ProjectID,
			AuthorID:  msg.AuthorID,
		})
	}
	return msg, nil
}

// Edit replaces a message's body. Only the author may edit.
func (s *Service) Edit(ctx context.Context, messageID, authorID, body string) (*Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != authorID {
		return nil, ErrNotAuthor
	}

	msg.Body = body
	msg.Edited = true
	msg.UpdatedAt = s.now()
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.broadcast("message.edited", msg)
	return msg, nil
}

// Delete removes a message. Only the author may delete.
func (s *Service) Delete(ctx context.Context, messageID, authorID string) error {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.AuthorID != authorID {
		return ErrNotAuthor
	}
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return err
	}
	s.broadcast("message.deleted", msg)
	return nil
}

// List returns a project's messages oldest first.
func (s *Service) List(ctx context.Context, projectID string, limit int) ([]*Message, error) {
	return s.store.ListMessages(ctx, projectID, limit)
}

// MarkRead records that userID has read a message.
func (s *Service) MarkRead(ctx context.Context, messageID, userID string) error {
	if _, err := s.store.GetMessage(ctx, messageID); err != nil {
		return err
	}
	return s.store.MarkMessageRead(ctx, messageID, userID, s.now())
}

// UnreadCount returns how many of a project's messages userID has not
// read, excluding their own.
func (s *Service) UnreadCount(ctx context.Context, projectID, userID string) (int, error) {
	return s.store.CountUnreadMessages(ctx, projectID, userID)
}

func (s *Service) broadcast(kind string, msg *Message) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(msg.ProjectID, WireFrame{Type: kind, Message: msg})
}
