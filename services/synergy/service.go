// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package synergy is the HTTP-facing service layer of SynergyOS.
//
// It sits between the Gin handlers and the core engine: access checks,
// the per-project activity trail, comments and attachments, and the
// derived read models (task detail, project stats) live here. Progress
// propagation and graph invariants stay inside core; this layer never
// reimplements them.
package synergy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/synergyos/synergy/services/synergy/core"
	"github.com/synergyos/synergy/services/synergy/events"
	"github.com/synergyos/synergy/services/synergy/telemetry"
)

// RecordStore persists the supporting records around tasks and
// projects: comments, attachments, and the activity trail.
type RecordStore interface {
	core.CommentStore
	core.ActivityStore
	core.AttachmentStore
}

// Service implements the SynergyOS API operations.
//
// Thread Safety: Safe for concurrent use; all mutable state lives in
// the engine and the stores.
type Service struct {
	engine  *core.Engine
	store   core.Store
	records RecordStore
	emitter events.Publisher
	metrics *telemetry.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithEmitter sets the publisher for facade-level events (comments).
func WithEmitter(emitter events.Publisher) ServiceOption {
	return func(s *Service) { s.emitter = emitter }
}

// WithMetrics sets the telemetry instruments. Optional.
func WithMetrics(m *telemetry.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates the service layer over an engine and the record
// store backing comments, attachments, and activities.
func NewService(engine *core.Engine, records RecordStore, opts ...ServiceOption) *Service {
	s := &Service{
		engine:  engine,
		store:   engine.Store(),
		records: records,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// recordActivity appends an audit entry. Failures are logged, never
// propagated: the mutation already succeeded.
func (s *Service) recordActivity(ctx context.Context, projectID, actorID, verb, targetType, targetID, detail string) {
	err := s.records.AppendActivity(ctx, &core.Activity{
		ProjectID:  projectID,
		ActorID:    actorID,
		Verb:       verb,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     detail,
		CreatedAt:  s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to record activity",
			"project_id", projectID, "verb", verb, "error", err)
	}
}

// =============================================================================
// Projects
// =============================================================================

// CreateProject creates a project owned by the acting user.
func (s *Service) CreateProject(ctx context.Context, req CreateProjectRequest, actorID string) (*core.Project, error) {
	project := &core.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      core.ProjectStatus(req.Status),
		Priority:    core.Priority(req.Priority),
		OwnerID:     actorID,
		MemberIDs:   dedupe(req.MemberIDs, actorID),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
	}
	created, err := s.engine.CreateProject(ctx, project, actorID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, created.ID, actorID, "created", "project", created.ID, created.Name)
	if s.metrics != nil {
		s.metrics.ProjectsCreated.Add(ctx, 1)
	}
	return created, nil
}

// GetProject returns a project readable by the acting user.
func (s *Service) GetProject(ctx context.Context, projectID, actorID string) (*core.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, ErrForbidden
	}
	return project, nil
}

// ListProjects returns the projects the acting user belongs to.
func (s *Service) ListProjects(ctx context.Context, actorID string) ([]*core.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]*core.Project, 0, len(projects))
	for _, p := range projects {
		if p.HasMember(actorID) {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// UpdateProject replaces a project's mutable fields. Member-only.
func (s *Service) UpdateProject(ctx context.Context, projectID string, req UpdateProjectRequest, actorID string) (*core.Project, error) {
	existing, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !existing.HasMember(actorID) {
		return nil, ErrForbidden
	}

	project := existing.Clone()
	project.Name = req.Name
	project.Description = req.Description
	project.Status = core.ProjectStatus(req.Status)
	project.Priority = core.Priority(req.Priority)
	project.MemberIDs = dedupe(req.MemberIDs, project.OwnerID)
	project.StartDate = req.StartDate
	project.EndDate = req.EndDate
	project.Budget = req.Budget

	updated, err := s.engine.UpdateProject(ctx, project, actorID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, projectID, actorID, "updated", "project", projectID, updated.Name)
	return updated, nil
}

// DeleteProject removes a project. Owner-only.
func (s *Service) DeleteProject(ctx context.Context, projectID, actorID string) error {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != actorID {
		return ErrForbidden
	}
	return s.engine.DeleteProject(ctx, projectID, actorID)
}

// AddMember adds a user to the project team. Owner-only.
func (s *Service) AddMember(ctx context.Context, projectID, userID, actorID string) (*core.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actorID {
		return nil, ErrForbidden
	}
	if project.HasMember(userID) {
		return project, nil
	}
	project.MemberIDs = append(project.MemberIDs, userID)

	updated, err := s.engine.UpdateProject(ctx, project, actorID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, projectID, actorID, "member_added", "project", projectID, userID)
	return updated, nil
}

// RemoveMember removes a user from the project team. Owner-only; the
// owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID, actorID string) (*core.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != actorID || userID == project.OwnerID {
		return nil, ErrForbidden
	}

	members := project.MemberIDs[:0]
	for _, id := range project.MemberIDs {
		if id != userID {
			members = append(members, id)
		}
	}
	project.MemberIDs = members

	updated, err := s.engine.UpdateProject(ctx, project, actorID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, projectID, actorID, "member_removed", "project", projectID, userID)
	return updated, nil
}

// ProjectStats computes the project dashboard summary.
func (s *Service) ProjectStats(ctx context.Context, projectID, actorID string) (*ProjectStats, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, ErrForbidden
	}
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	milestones, err := s.store.ListMilestones(ctx, projectID)
	if err != nil {
		return nil, err
	}

	stats := &ProjectStats{
		ProjectID:     projectID,
		Progress:      project.Progress,
		TotalTasks:    len(tasks),
		TasksByStatus: map[string]int{},
		MemberCount:   1 + len(project.MemberIDs),
	}
	now := s.now()
	for _, task := range tasks {
		stats.TasksByStatus[string(task.Status)]++
		if task.DueDate != nil && task.DueDate.Before(now) && task.Status != core.StatusDone {
			stats.OverdueTasks++
		}
		if task.EstimatedHours != nil {
			stats.TotalEstimatedHours += *task.EstimatedHours
		}
		for _, entry := range task.TimeLogs {
			stats.TotalLoggedHours += float64(entry.DurationMinutes) / 60
		}
	}
	stats.TotalEstimatedHours = core.Round2(stats.TotalEstimatedHours)
	stats.TotalLoggedHours = core.Round2(stats.TotalLoggedHours)
	stats.TotalMilestones = len(milestones)
	for _, m := range milestones {
		if m.Status == core.MilestoneCompleted {
			stats.CompletedMilestones++
		}
	}
	return stats, nil
}

// ListActivities returns the most recent audit entries for a project.
func (s *Service) ListActivities(ctx context.Context, projectID, actorID string, limit int) ([]*core.Activity, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, ErrForbidden
	}
	return s.records.ListActivities(ctx, projectID, limit)
}

// =============================================================================
// Tasks
// =============================================================================

// CreateTask creates a task in a project the actor belongs to.
func (s *Service) CreateTask(ctx context.Context, req CreateTaskRequest, actorID string) (*core.Task, error) {
	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, ErrForbidden
	}

	task := &core.Task{
		ProjectID:      req.ProjectID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         core.Status(req.Status),
		Priority:       core.Priority(req.Priority),
		AssigneeID:     req.AssigneeID,
		Impact:         req.Impact,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
	}
	created, err := s.engine.CreateTask(ctx, task, actorID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, req.ProjectID, actorID, "created", "task", created.ID, created.Title)
	if s.metrics != nil {
		s.metrics.TasksCreated.Add(ctx, 1)
		if created.Status == core.StatusDone {
			s.metrics.TasksCompleted.Add(ctx, 1)
		}
	}
	return created, nil
}

// GetTask returns a task with its dependency-graph context.
func (s *Service) GetTask(ctx context.Context, taskID, actorID string) (*TaskDetail, error) {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	canStart, err := s.engine.CanStart(ctx, taskID)
	if err != nil {
		return nil, err
	}
	blockedBy, err := s.engine.BlockedBy(ctx, taskID)
	if err != nil {
		return nil, err
	}
	blocking, err := s.engine.BlockingTasks(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &TaskDetail{
		Task:      task,
		CanStart:  canStart,
		BlockedBy: blockedBy,
		Blocking:  blocking,
	}, nil
}

// ListTasks returns a project's tasks.
func (s *Service) ListTasks(ctx context.Context, projectID, actorID string) ([]*core.Task, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, ErrForbidden
	}
	return s.store.ListTasks(ctx, projectID)
}

// UpdateTask replaces a task's mutable fields.
func (s *Service) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest, actorID string) (*core.Task, error) {
	existing, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	wasDone := existing.Status == core.StatusDone

	task := existing.Clone()
	task.Title = req.Title
	task.Description = req.Description
	task.Status = core.Status(req.Status)
	task.Priority = core.Priority(req.Priority)
	task.AssigneeID = req.AssigneeID
	task.Impact = req.Impact
	task.DueDate = req.DueDate
	task.EstimatedHours = req.EstimatedHours
	task.ActualHours = req.ActualHours

	updated, err := s.engine.UpdateTask(ctx, task, actorID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, updated.ProjectID, actorID, "updated", "task", taskID, updated.Title)
	if s.metrics != nil && updated.Status == core.StatusDone && !wasDone {
		s.metrics.TasksCompleted.Add(ctx, 1)
	}
	return updated, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, taskID, actorID string) error {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if err := s.engine.DeleteTask(ctx, taskID, actorID); err != nil {
		return err
	}
	s.recordActivity(ctx, task.ProjectID, actorID, "deleted", "task", taskID, task.Title)
	return nil
}

// AddDependency records a dependency edge between two tasks.
func (s *Service) AddDependency(ctx context.Context, taskID, dependencyID, actorID string) error {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if err := s.engine.AddDependency(ctx, taskID, dependencyID); err != nil {
		return err
	}
	s.recordActivity(ctx, task.ProjectID, actorID, "dependency_added", "task", taskID, dependencyID)
	if s.metrics != nil {
		s.metrics.DependenciesAdded.Add(ctx, 1)
	}
	return nil
}

// RemoveDependency removes a dependency edge.
func (s *Service) RemoveDependency(ctx context.Context, taskID, dependencyID, actorID string) error {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return err
	}
	if err := s.engine.RemoveDependency(ctx, taskID, dependencyID); err != nil {
		return err
	}
	s.recordActivity(ctx, task.ProjectID, actorID, "dependency_removed", "task", taskID, dependencyID)
	return nil
}

// =============================================================================
// Time tracking
// =============================================================================

// StartTimer opens a timer on the task for the acting user.
func (s *Service) StartTimer(ctx context.Context, taskID, actorID string) (*core.ActiveTimer, error) {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	timer, err := s.engine.StartTimer(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, task.ProjectID, actorID, "timer_started", "task", taskID, "")
	if s.metrics != nil {
		s.metrics.TimersStarted.Add(ctx, 1)
	}
	return timer, nil
}

// StopTimer closes the task's running timer into a time entry.
func (s *Service) StopTimer(ctx context.Context, taskID, note, actorID string) (*core.TimeEntry, error) {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	entry, err := s.engine.StopTimer(ctx, taskID, note)
	if err != nil {
		return nil, err
	}
	hours := core.Round2(float64(entry.DurationMinutes) / 60)
	s.recordActivity(ctx, task.ProjectID, actorID, "timer_stopped", "task", taskID,
		fmt.Sprintf("%.2fh", hours))
	if s.metrics != nil {
		s.metrics.HoursLogged.Add(ctx, hours)
	}
	return entry, nil
}

// LogTime appends a manual time entry for the acting user.
func (s *Service) LogTime(ctx context.Context, taskID string, req LogTimeRequest, actorID string) (*core.TimeEntry, error) {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	entry, err := s.engine.LogManual(ctx, taskID, actorID, req.Hours, req.Note, req.LoggedAt)
	if err != nil {
		return nil, err
	}
	hours := core.Round2(float64(entry.DurationMinutes) / 60)
	s.recordActivity(ctx, task.ProjectID, actorID, "time_logged", "task", taskID,
		fmt.Sprintf("%.2fh", hours))
	if s.metrics != nil {
		s.metrics.HoursLogged.Add(ctx, hours)
	}
	return entry, nil
}

// TimeLogs returns a task's full time ledger.
func (s *Service) TimeLogs(ctx context.Context, taskID, actorID string) (*TimeLogsResponse, error) {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	total, err := s.engine.TotalLoggedHours(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &TimeLogsResponse{
		TaskID:     taskID,
		Entries:    task.TimeLogs,
		TotalHours: total,
	}, nil
}

// =============================================================================
// Milestones
// =============================================================================

// CreateMilestone creates a milestone in a project the actor belongs to.
func (s *Service) CreateMilestone(ctx context.Context, req CreateMilestoneRequest, actorID string) (*core.Milestone, error) {
	project, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, ErrForbidden
	}
	milestone := &core.Milestone{
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Description: req.Description,
		DueDate:     req.DueDate,
		TaskIDs:     req.TaskIDs,
	}
	created, err := s.engine.CreateMilestone(ctx, milestone)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, req.ProjectID, actorID, "created", "milestone", created.ID, created.Name)
	return created, nil
}

// GetMilestone returns a milestone.
func (s *Service) GetMilestone(ctx context.Context, milestoneID, actorID string) (*core.Milestone, error) {
	milestone, err := s.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeProject(ctx, milestone.ProjectID, actorID); err != nil {
		return nil, err
	}
	return milestone, nil
}

// ListMilestones returns a project's milestones ordered by due date.
func (s *Service) ListMilestones(ctx context.Context, projectID, actorID string) ([]*core.Milestone, error) {
	if _, err := s.authorizeProject(ctx, projectID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListMilestones(ctx, projectID)
}

// UpdateMilestone replaces a milestone's mutable fields.
func (s *Service) UpdateMilestone(ctx context.Context, milestoneID string, req UpdateMilestoneRequest, actorID string) (*core.Milestone, error) {
	existing, err := s.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeProject(ctx, existing.ProjectID, actorID); err != nil {
		return nil, err
	}

	milestone := existing.Clone()
	milestone.Name = req.Name
	milestone.Description = req.Description
	milestone.DueDate = req.DueDate
	milestone.TaskIDs = req.TaskIDs

	updated, err := s.engine.UpdateMilestone(ctx, milestone)
	if err != nil {
		return nil, err
	}
	s.recordActivity(ctx, existing.ProjectID, actorID, "updated", "milestone", milestoneID, updated.Name)
	return updated, nil
}

// DeleteMilestone removes a milestone.
func (s *Service) DeleteMilestone(ctx context.Context, milestoneID, actorID string) error {
	milestone, err := s.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	if _, err := s.authorizeProject(ctx, milestone.ProjectID, actorID); err != nil {
		return err
	}
	if err := s.engine.DeleteMilestone(ctx, milestoneID); err != nil {
		return err
	}
	s.recordActivity(ctx, milestone.ProjectID, actorID, "deleted", "milestone", milestoneID, milestone.Name)
	return nil
}

// RefreshMilestone forces a progress recomputation for the milestone.
func (s *Service) RefreshMilestone(ctx context.Context, milestoneID, actorID string) (*core.Milestone, error) {
	milestone, err := s.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeProject(ctx, milestone.ProjectID, actorID); err != nil {
		return nil, err
	}
	if err := s.engine.UpdateMilestoneProgress(ctx, milestoneID); err != nil {
		return nil, err
	}
	return s.store.GetMilestone(ctx, milestoneID)
}

// =============================================================================
// Comments
// =============================================================================

// AddComment adds a comment to a task and emits comment.created.
func (s *Service) AddComment(ctx context.Context, taskID, body, actorID string) (*core.Comment, error) {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	comment := &core.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		AuthorID:  actorID,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.records.SaveComment(ctx, comment); err != nil {
		return nil, err
	}
	s.recordActivity(ctx, task.ProjectID, actorID, "commented", "task", taskID, "")
	if s.emitter != nil {
		s.emitter.Emit(events.TypeCommentCreated, actorID, events.CommentEventData{
			CommentID: comment.ID,
			TaskID:    taskID,
			ProjectID: task.ProjectID,
			AuthorID:  actorID,
		})
	}
	return comment, nil
}

// ListComments returns a task's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, taskID, actorID string) ([]*core.Comment, error) {
	if _, err := s.authorizeTask(ctx, taskID, actorID); err != nil {
		return nil, err
	}
	return s.records.ListComments(ctx, taskID)
}

// DeleteComment removes a comment. Author-only.
func (s *Service) DeleteComment(ctx context.Context, commentID, actorID string) error {
	comment, err := s.records.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID {
		return ErrNotCommentAuthor
	}
	return s.records.DeleteComment(ctx, commentID)
}

// =============================================================================
// Attachments
// =============================================================================

// AddAttachment records attachment metadata on a task.
func (s *Service) AddAttachment(ctx context.Context, taskID string, req AttachmentRequest, actorID string) (*core.Attachment, error) {
	task, err := s.authorizeTask(ctx, taskID, actorID)
	if err != nil {
		return nil, err
	}
	attachment := &core.Attachment{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		URL:         req.URL,
		UploadedBy:  actorID,
		CreatedAt:   s.now(),
	}
	if err := s.records.SaveAttachment(ctx, attachment); err != nil {
		return nil, err
	}
	s.recordActivity(ctx, task.ProjectID, actorID, "attached", "task", taskID, req.FileName)
	return attachment, nil
}

// ListAttachments returns a task's attachment metadata.
func (s *Service) ListAttachments(ctx context.Context, taskID, actorID string) ([]*core.Attachment, error) {
	if _, err := s.authorizeTask(ctx, taskID, actorID); err != nil {
		return nil, err
	}
	return s.records.ListAttachments(ctx, taskID)
}

// DeleteAttachment removes attachment metadata.
func (s *Service) DeleteAttachment(ctx context.Context, taskID, attachmentID, actorID string) error {
	if _, err := s.authorizeTask(ctx, taskID, actorID); err != nil {
		return err
	}
	return s.records.DeleteAttachment(ctx, attachmentID)
}

// =============================================================================
// Helpers
// =============================================================================

// authorizeTask resolves the task and checks project membership.
func (s *Service) authorizeTask(ctx context.Context, taskID, actorID string) (*core.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeProject(ctx, task.ProjectID, actorID); err != nil {
		return nil, err
	}
	return task, nil
}

// authorizeProject resolves the project and checks membership.
func (s *Service) authorizeProject(ctx context.Context, projectID, actorID string) (*core.Project, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(actorID) {
		return nil, ErrForbidden
	}
	return project, nil
}

// dedupe returns ids with duplicates and the owner removed; the owner
// is an implicit member and never stored in the member list.
func dedupe(ids []string, ownerID string) []string {
	var out []string
	seen := map[string]bool{ownerID: true}
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
