// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synergy

import (
	"time"

	"github.com/synergyos/synergy/services/synergy/core"
)

// ServiceVersion is the SynergyOS API version.
const ServiceVersion = "1.0.0"

// ErrorResponse is the envelope for all error replies.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// CreateProjectRequest creates a project.
type CreateProjectRequest struct {
	Name        string     `json:"name" binding:"required,max=200"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	MemberIDs   []string   `json:"member_ids"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Budget      *float64   `json:"budget"`
}

// UpdateProjectRequest replaces a project's mutable fields.
type UpdateProjectRequest struct {
	Name        string     `json:"name" binding:"required,max=200"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"required"`
	Priority    string     `json:"priority" binding:"required"`
	MemberIDs   []string   `json:"member_ids"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Budget      *float64   `json:"budget"`
}

// MemberRequest adds or removes a project member.
type MemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CreateTaskRequest creates a task under a project.
type CreateTaskRequest struct {
	ProjectID      string     `json:"project_id" binding:"required"`
	Title          string     `json:"title" binding:"required,max=200"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	AssigneeID     string     `json:"assignee_id"`
	Impact         float64    `json:"impact"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
}

// UpdateTaskRequest replaces a task's mutable fields. Dependency edges
// and time-ledger fields have their own endpoints and are never
// touched here.
type UpdateTaskRequest struct {
	Title          string     `json:"title" binding:"required,max=200"`
	Description    string     `json:"description"`
	Status         string     `json:"status" binding:"required"`
	Priority       string     `json:"priority" binding:"required"`
	AssigneeID     string     `json:"assignee_id"`
	Impact         float64    `json:"impact"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours"`
}

// DependencyRequest adds or removes a dependency edge.
type DependencyRequest struct {
	DependencyID string `json:"dependency_id" binding:"required"`
}

// TaskDetail is a task plus its dependency-graph context.
type TaskDetail struct {
	Task      *core.Task   `json:"task"`
	CanStart  bool         `json:"can_start"`
	BlockedBy []*core.Task `json:"blocked_by"`
	Blocking  []*core.Task `json:"blocking"`
}

// StopTimerRequest closes a task's running timer.
type StopTimerRequest struct {
	Note string `json:"note"`
}

// LogTimeRequest appends a manual time entry.
type LogTimeRequest struct {
	Hours    float64    `json:"hours" binding:"required,gt=0"`
	Note     string     `json:"note"`
	LoggedAt *time.Time `json:"logged_at"`
}

// TimeLogsResponse lists a task's time entries with the running total.
type TimeLogsResponse struct {
	TaskID     string           `json:"task_id"`
	Entries    []core.TimeEntry `json:"entries"`
	TotalHours float64          `json:"total_hours"`
}

// CreateMilestoneRequest creates a milestone.
type CreateMilestoneRequest struct {
	ProjectID   string    `json:"project_id" binding:"required"`
	Name        string    `json:"name" binding:"required,max=200"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" binding:"required"`
	TaskIDs     []string  `json:"task_ids"`
}

// UpdateMilestoneRequest replaces a milestone's mutable fields.
type UpdateMilestoneRequest struct {
	Name        string    `json:"name" binding:"required,max=200"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" binding:"required"`
	TaskIDs     []string  `json:"task_ids"`
}

// CommentRequest adds a comment to a task.
type CommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// AttachmentRequest records file metadata on a task. The file itself
// lives in external storage; only the reference is kept.
type AttachmentRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	URL         string `json:"url" binding:"required,url"`
}

// ProjectStats summarizes a project's current state.
type ProjectStats struct {
	ProjectID           string         `json:"project_id"`
	Progress            int            `json:"progress"`
	TotalTasks          int            `json:"total_tasks"`
	TasksByStatus       map[string]int `json:"tasks_by_status"`
	OverdueTasks        int            `json:"overdue_tasks"`
	TotalEstimatedHours float64        `json:"total_estimated_hours"`
	TotalLoggedHours    float64        `json:"total_logged_hours"`
	MemberCount         int            `json:"member_count"`
	TotalMilestones     int            `json:"total_milestones"`
	CompletedMilestones int            `json:"completed_milestones"`
}

// InstantiateTemplateRequest creates a project from a template.
type InstantiateTemplateRequest struct {
	Name        string     `json:"name" binding:"required,max=200"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date"`
}

// PostMessageRequest posts to a project's message board.
type PostMessageRequest struct {
	Body     string   `json:"body" binding:"required"`
	ParentID string   `json:"parent_id"`
	Mentions []string `json:"mentions"`
}

// EditMessageRequest replaces a message body.
type EditMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// ParseTaskRequest asks the assistant to turn prose into a task draft.
type ParseTaskRequest struct {
	Input string `json:"input" binding:"required"`
}

// DescribeTaskRequest asks the assistant to draft a description for a
// task title.
type DescribeTaskRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// RegisterWebhookRequest registers a delivery endpoint.
type RegisterWebhookRequest struct {
	Name   string   `json:"name" binding:"required,max=200"`
	URL    string   `json:"url" binding:"required,url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
	Active *bool    `json:"active"`
}
