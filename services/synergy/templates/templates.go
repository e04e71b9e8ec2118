// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package templates provides reusable project blueprints: a template
// captures a task list (with relative ordering, impact weights, and
// order-based dependencies) and a milestone plan, and can be
// instantiated into a real project through the engine.
package templates

import (
	"context"
	"errors"
	"time"

	"github.com/synergyos/synergy/services/synergy/core"
)

// ErrTemplateNotFound is returned for lookups of unknown template IDs.
var ErrTemplateNotFound = errors.New("template not found")

// TaskTemplate is one task blueprint inside a template.
//
// Order is the task's position in the creation sequence and the handle
// other blueprints use to reference it: DependsOnOrder lists the Order
// values this task depends on, and milestone blueprints collect tasks
// by Order.
type TaskTemplate struct {
	Title          string        `json:"title" validate:"required,max=200"`
	Description    string        `json:"description,omitempty"`
	Priority       core.Priority `json:"priority"`
	EstimatedHours *float64      `json:"estimated_hours,omitempty"`

	// Impact is carried verbatim onto the created task, so templates
	// control the project's progress weighting up front.
	Impact float64 `json:"impact"`

	Order          int   `json:"order"`
	DependsOnOrder []int `json:"depends_on_order,omitempty"`

	// StartOffsetDays is days after project start when work begins.
	StartOffsetDays int `json:"start_offset_days"`

	// DurationDays, when set, derives the created task's due date.
	DurationDays *int `json:"duration_days,omitempty"`
}

// MilestoneTemplate is one milestone blueprint inside a template.
type MilestoneTemplate struct {
	Name          string `json:"name" validate:"required,max=200"`
	Description   string `json:"description,omitempty"`
	DueOffsetDays int    `json:"due_offset_days"`
	TaskOrders    []int  `json:"task_orders,omitempty"`
	Order         int    `json:"order"`
}

// Template is a reusable project blueprint.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`

	DefaultPriority       core.Priority `json:"default_priority"`
	EstimatedDurationDays *int          `json:"estimated_duration_days,omitempty"`

	CreatedBy string `json:"created_by"`
	IsPublic  bool   `json:"is_public"`

	Tasks      []TaskTemplate      `json:"tasks,omitempty"`
	Milestones []MilestoneTemplate `json:"milestones,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists templates.
type Store interface {
	SaveTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context) ([]*Template, error)
	DeleteTemplate(ctx context.Context, id string) error
}
