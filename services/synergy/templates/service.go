// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package templates

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/synergyos/synergy/services/synergy/core"
)

// Service manages templates and instantiates them into projects.
type Service struct {
	store    Store
	engine   *core.Engine
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a template service.
func NewService(store Store, engine *core.Engine, opts ...Option) *Service {
	s := &Service{
		store:    store,
		engine:   engine,
		validate: validator.New(),
	}
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

// Create validates and persists a new template.
//
// Description: Beyond struct-level validation, the blueprint's internal
// references are checked: task Order values must be unique, every
// DependsOnOrder and milestone TaskOrders entry must name an existing
// task Order, and a task may not depend on its own Order. Dependency
// cycles across orders are rejected at instantiation by the engine's
// graph validator, not here.
// Inputs: ctx - request context. t - template to create; ID/CreatedAt
// are assigned here.
// Outputs: the stored template, or a validation/store error.
func (s *Service) Create(ctx context.Context, t *Template) (*Template, error) {
	if err := s.validate.Struct(t); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	if t.DefaultPriority == "" {
		t.DefaultPriority = core.PriorityMedium
	}
	if !t.DefaultPriority.Valid() {
		return nil, fmt.Errorf("invalid template: unknown priority %q", t.DefaultPriority)
	}

	orders := make(map[int]bool, len(t.Tasks))
	for i := range t.Tasks {
		tt := &t.Tasks[i]
		if tt.Priority == "" {
			tt.Priority = t.DefaultPriority
		}
		if !tt.Priority.Valid() {
			return nil, fmt.Errorf("invalid template: task %q has unknown priority %q", tt.Title, tt.Priority)
		}
		if err := core.ValidateImpact(tt.Impact); err != nil {
			return nil, fmt.Errorf("invalid template: task %q: %w", tt.Title, err)
		}
		if orders[tt.Order] {
			return nil, fmt.Errorf("invalid template: duplicate task order %d", tt.Order)
		}
		orders[tt.Order] = true
	}
	for _, tt := range t.Tasks {
		for _, dep := range tt.DependsOnOrder {
			if dep == tt.Order {
				return nil, fmt.Errorf("invalid template: task order %d depends on itself", tt.Order)
			}
			if !orders[dep] {
				return nil, fmt.Errorf("invalid template: task order %d depends on unknown order %d", tt.Order, dep)
			}
		}
	}
	for _, mt := range t.Milestones {
		for _, order := range mt.TaskOrders {
			if !orders[order] {
				return nil, fmt.Errorf("invalid template: milestone %q references unknown task order %d", mt.Name, order)
			}
		}
	}

	now := s.now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	if err := s.store.SaveTemplate(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("template created", "template_id", t.ID, "name", t.Name, "tasks", len(t.Tasks))
	return t, nil
}

// Get returns one template.
func (s *Service) Get(ctx context.Context, id string) (*Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// List returns all templates.
func (s *Service) List(ctx context.Context) ([]*Template, error) {
	return s.store.ListTemplates(ctx)
}

// Delete removes a template. Projects already instantiated from it are
// untouched.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteTemplate(ctx, id)
}

// InstantiateRequest names the project a template should expand into.
type InstantiateRequest struct {
	Name        string `validate:"required,max=200"`
	Description string
	OwnerID     string `validate:"required"`
	StartDate   *time.Time
}

// Instantiate expands a template into a full project.
//
// Description: Creates the project, then the blueprint's tasks in Order
// sequence, then wires order-based dependencies through the dependency
// validator, then creates milestones over the mapped task IDs. Date
// fields are derived from the request's start date (default now):
// a task with a duration gets a due date at start + offset + duration,
// and milestones fall due at start + due offset. The engine recomputes
// project and milestone progress as a side effect of task creation.
// Inputs: ctx - request context. templateID - blueprint to expand.
// req - project name, owner, and optional start date.
// Outputs: the created project, or the first error from validation,
// the store, or the engine. A dependency the graph validator rejects
// aborts the instantiation.
func (s *Service) Instantiate(ctx context.Context, templateID string, req InstantiateRequest) (*core.Project, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid instantiate request: %w", err)
	}
	tmpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	if req.StartDate != nil {
		start = *req.StartDate
	}
	description := req.Description
	if description == "" {
		description = tmpl.Description
	}

	project := &core.Project{
		Name:        req.Name,
		Description: description,
		Status:      core.ProjectPlanning,
		Priority:    tmpl.DefaultPriority,
		OwnerID:     req.OwnerID,
		StartDate:   &start,
	}
	if tmpl.EstimatedDurationDays != nil {
		end := start.AddDate(0, 0, *tmpl.EstimatedDurationDays)
		project.EndDate = &end
	}
	project, err = s.engine.CreateProject(ctx, project, req.OwnerID)
	if err != nil {
		return nil, err
	}

	ordered := append([]TaskTemplate(nil), tmpl.Tasks...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	taskByOrder := make(map[int]string, len(ordered))
	for _, tt := range ordered {
		task := &core.Task{
			ProjectID:      project.ID,
			Title:          tt.Title,
			Description:    tt.Description,
			Status:         core.StatusTodo,
			Priority:       tt.Priority,
			Impact:         tt.Impact,
			EstimatedHours: tt.EstimatedHours,
		}
		if tt.DurationDays != nil {
			due := start.AddDate(0, 0, tt.StartOffsetDays+*tt.DurationDays)
			task.DueDate = &due
		}
		task, err := s.engine.CreateTask(ctx, task, req.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("instantiate task %q: %w", tt.Title, err)
		}
		taskByOrder[tt.Order] = task.ID
	}

	for _, tt := range ordered {
		for _, dep := range tt.DependsOnOrder {
			depID, ok := taskByOrder[dep]
			if !ok {
				return nil, fmt.Errorf("instantiate: task order %d depends on unknown order %d", tt.Order, dep)
			}
			if err := s.engine.AddDependency(ctx, taskByOrder[tt.Order], depID); err != nil {
				return nil, fmt.Errorf("instantiate dependency %d -> %d: %w", tt.Order, dep, err)
			}
		}
	}

	milestones := append([]MilestoneTemplate(nil), tmpl.Milestones...)
	sort.SliceStable(milestones, func(i, j int) bool { return milestones[i].Order < milestones[j].Order })
	for _, mt := range milestones {
		taskIDs := make([]string, 0, len(mt.TaskOrders))
		for _, order := range mt.TaskOrders {
			if id, ok := taskByOrder[order]; ok {
				taskIDs = append(taskIDs, id)
			}
		}
		milestone := &core.Milestone{
			ProjectID:   project.ID,
			Name:        mt.Name,
			Description: mt.Description,
			DueDate:     start.AddDate(0, 0, mt.DueOffsetDays),
			TaskIDs:     taskIDs,
		}
		if _, err := s.engine.CreateMilestone(ctx, milestone); err != nil {
			return nil, fmt.Errorf("instantiate milestone %q: %w", mt.Name, err)
		}
	}

	s.logger.Info("template instantiated",
		"template_id", templateID, "project_id", project.ID,
		"tasks", len(ordered), "milestones", len(milestones))

	// Task creation recomputed progress along the way; re-read the
	// final project record.
	return s.engine.Store().GetProject(ctx, project.ID)
}
