// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package core implements the task dependency and progress-propagation
// engine for SynergyOS.
//
// The engine covers four concerns:
//
//   - Task Store: records for tasks, projects, and milestones with
//     referential cleanup on delete.
//   - Dependency Graph Validator: enforces a DAG over task dependency
//     edges (no self-loops, no cycles of any length).
//   - Progress Aggregator: weighted project progress and unweighted
//     milestone progress with status derivation.
//   - Time Ledger: append-only per-task time entries with a
//     single-active-timer invariant.
//
// Everything else in the product (HTTP surface, notifications, webhooks,
// AI assistance) sits around this package and interacts with it through
// the Engine facade and the events it publishes.
package core

import (
	"math"
	"time"
)

// Status is a task's workflow state.
//
// The four-state set {todo, in_progress, review, done} is the canonical
// one; the legacy three-state variant (with "completed" instead of
// review/done) is not accepted.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Valid reports whether s is a known task status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Priority is a task or project priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ProjectStatus is a project's lifecycle state.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// MilestoneStatus is a milestone's derived state.
//
// The status is owned by the Progress Aggregator; callers never set it
// directly. Derivation order: completed (100%) wins over everything,
// then in_progress (>0%), then a missed override when past due.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneCompleted  MilestoneStatus = "completed"
	MilestoneMissed     MilestoneStatus = "missed"
)

// TimeEntry is one closed or manual record of time spent on a task.
//
// Entries are append-only: once recorded they are never mutated. Timer
// entries carry start/end times; manual entries carry nil start/end and
// only a duration.
type TimeEntry struct {
	// UserID identifies who logged the time.
	UserID string `json:"user_id"`

	// StartTime is when the timer started (nil for manual entries).
	StartTime *time.Time `json:"start_time"`

	// EndTime is when the timer stopped (nil for manual entries).
	EndTime *time.Time `json:"end_time"`

	// DurationMinutes is the logged duration in whole minutes.
	DurationMinutes int `json:"duration_minutes"`

	// Note is an optional description of the work done.
	Note string `json:"note,omitempty"`

	// LoggedAt is when the entry was recorded.
	LoggedAt time.Time `json:"logged_at"`
}

// ActiveTimer is the single in-progress timer slot a task may hold.
type ActiveTimer struct {
	// UserID identifies who started the timer.
	UserID string `json:"user_id"`

	// StartTime is when the timer started.
	StartTime time.Time `json:"start_time"`
}

// Task is a unit of work within a project.
type Task struct {
	// ID is the opaque unique identifier.
	ID string `json:"id"`

	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Status is the workflow state.
	Status Status `json:"status"`

	// Priority affects ordering in views, not progress.
	Priority Priority `json:"priority"`

	// AssigneeID is the user the task is assigned to, if any.
	AssigneeID string `json:"assignee_id,omitempty"`

	// Impact is the task's weighted contribution to project progress,
	// a percentage in [0, 100] with two decimal places. Default 0.
	Impact float64 `json:"impact"`

	// DependsOn lists task IDs that must be done before this task can
	// start. Mutated only through the dependency validator.
	DependsOn []string `json:"depends_on,omitempty"`

	// DueDate is the optional deadline.
	DueDate *time.Time `json:"due_date,omitempty"`

	// EstimatedHours is the optional up-front estimate.
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`

	// ActualHours is derived from TimeLogs once time tracking is used,
	// otherwise manually editable.
	ActualHours *float64 `json:"actual_hours,omitempty"`

	// TimeLogs is the ordered append-only sequence of time entries.
	TimeLogs []TimeEntry `json:"time_logs,omitempty"`

	// ActiveTimer is the at-most-one open timer for this task.
	ActiveTimer *ActiveTimer `json:"active_timer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// CompletedAt is set on transition into done and cleared on
	// transition out of done.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DependsOn != nil {
		c.DependsOn = append([]string(nil), t.DependsOn...)
	}
	if t.TimeLogs != nil {
		c.TimeLogs = append([]TimeEntry(nil), t.TimeLogs...)
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.EstimatedHours != nil {
		v := *t.EstimatedHours
		c.EstimatedHours = &v
	}
	if t.ActualHours != nil {
		v := *t.ActualHours
		c.ActualHours = &v
	}
	if t.ActiveTimer != nil {
		at := *t.ActiveTimer
		c.ActiveTimer = &at
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}

// DependsOnTask reports whether id is a direct dependency of the task.
func (t *Task) DependsOnTask(id string) bool {
	for _, dep := range t.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}

// Project owns an unordered collection of tasks and milestones.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	Priority    Priority      `json:"priority"`

	// OwnerID is the creating user.
	OwnerID string `json:"owner_id"`

	// MemberIDs are the team members (excluding the owner).
	MemberIDs []string `json:"member_ids,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Budget    *float64   `json:"budget,omitempty"`

	// Progress is the weighted completion percentage in [0, 100].
	// Always the last value computed by the aggregator; never set
	// directly by callers.
	Progress int `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	if p.MemberIDs != nil {
		c.MemberIDs = append([]string(nil), p.MemberIDs...)
	}
	if p.StartDate != nil {
		d := *p.StartDate
		c.StartDate = &d
	}
	if p.EndDate != nil {
		d := *p.EndDate
		c.EndDate = &d
	}
	if p.Budget != nil {
		b := *p.Budget
		c.Budget = &b
	}
	return &c
}

// HasMember reports whether userID is the owner or a team member.
func (p *Project) HasMember(userID string) bool {
	if p.OwnerID == userID {
		return true
	}
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Milestone groups a subset of a project's tasks under a due date.
//
// A task may belong to zero or more milestones. Milestone progress is
// unweighted (completed count over total count), intentionally distinct
// from the impact-weighted project progress.
type Milestone struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// DueDate drives the missed-status override.
	DueDate time.Time `json:"due_date"`

	// Status is derived from progress and due date by the aggregator.
	Status MilestoneStatus `json:"status"`

	// TaskIDs is the associated task subset.
	TaskIDs []string `json:"task_ids,omitempty"`

	// Progress is the unweighted completion percentage in [0, 100].
	Progress int `json:"progress"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the milestone.
func (m *Milestone) Clone() *Milestone {
	if m == nil {
		return nil
	}
	c := *m
	if m.TaskIDs != nil {
		c.TaskIDs = append([]string(nil), m.TaskIDs...)
	}
	if m.CompletedAt != nil {
		ts := *m.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}

// HasTask reports whether id is in the milestone's task set.
func (m *Milestone) HasTask(id string) bool {
	for _, tid := range m.TaskIDs {
		if tid == id {
			return true
		}
	}
	return false
}

// ValidateImpact checks that v is within [0, 100].
//
// Both boundary values are valid; anything outside fails with
// ErrInvalidImpact.
func ValidateImpact(v float64) error {
	if v < 0 || v > 100 {
		return ErrInvalidImpact
	}
	return nil
}

// Round2 rounds v to two decimal places. Persisted decimals (impact,
// actual_hours) are stored at this precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
