// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synergyos/synergy/services/synergy/events"
)

// Engine is the facade over the task store, dependency validator,
// progress aggregator, and time ledger.
//
// Description:
//
//	Every task write flows through the engine so that progress
//	propagation is an explicit, ordered step of the same operation:
//	save task, recompute the owning project's progress, refresh any
//	milestones whose task set contains the task, then emit events.
//	Readers within the same operation therefore never observe a task
//	update without its project progress reflecting it.
//
// Thread Safety:
//
//	Engine is safe for concurrent use. Writes touching the same
//	project are serialized by a per-project mutex, making the
//	read-all-tasks/compute/write-progress sequence a transactional
//	read-modify-write. Writers on different projects proceed in
//	parallel.
type Engine struct {
	store   Store
	emitter events.Publisher
	graph   *GraphValidator
	ledger  *TimeLedger
	agg     *Aggregator
	now     func() time.Time
	logger  *slog.Logger

	projLocks sync.Map // project id -> *sync.Mutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEmitter sets the event publisher. Without one, no events fire.
func WithEmitter(emitter events.Publisher) EngineOption {
	return func(e *Engine) { e.emitter = emitter }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine over the given store.
func NewEngine(store Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.graph = NewGraphValidator(store)
	e.ledger = NewTimeLedger(store, e.now)
	e.agg = NewAggregator(store, e.emitter, e.now)
	return e
}

// Store exposes the underlying store for read-only collaborators.
func (e *Engine) Store() Store {
	return e.store
}

// lockProject serializes writes per project.
func (e *Engine) lockProject(projectID string) func() {
	mu, _ := e.projLocks.LoadOrStore(projectID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// =============================================================================
// Projects
// =============================================================================

// CreateProject creates a project with defaults applied.
//
// Progress starts at 0 and is owned by the aggregator from then on.
func (e *Engine) CreateProject(ctx context.Context, project *Project, actorID string) (*Project, error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = ProjectPlanning
	}
	if !project.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, project.Status)
	}
	if project.Priority == "" {
		project.Priority = PriorityMedium
	}
	now := e.now()
	project.Progress = 0
	project.CreatedAt = now
	project.UpdatedAt = now

	if err := e.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	e.emit(events.TypeProjectCreated, actorID, events.ProjectEventData{
		ProjectID: project.ID,
		Name:      project.Name,
		Status:    string(project.Status),
	})
	return project, nil
}

// UpdateProject applies field changes to a project.
//
// The stored progress value is preserved: callers cannot set progress
// directly, only the aggregator writes it.
func (e *Engine) UpdateProject(ctx context.Context, project *Project, actorID string) (*Project, error) {
	unlock := e.lockProject(project.ID)
	defer unlock()

	existing, err := e.store.GetProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if !project.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, project.Status)
	}

	project.Progress = existing.Progress
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = e.now()
	if err := e.store.SaveProject(ctx, project); err != nil {
		return nil, err
	}
	e.emit(events.TypeProjectUpdated, actorID, events.ProjectEventData{
		ProjectID: project.ID,
		Name:      project.Name,
		Status:    string(project.Status),
	})
	return project, nil
}

// DeleteProject removes a project, cascading to its tasks and
// milestones.
func (e *Engine) DeleteProject(ctx context.Context, projectID, actorID string) error {
	unlock := e.lockProject(projectID)
	defer unlock()

	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := e.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	e.emit(events.TypeProjectDeleted, actorID, events.ProjectEventData{
		ProjectID: projectID,
		Name:      project.Name,
		Status:    string(project.Status),
	})
	return nil
}

// =============================================================================
// Tasks
// =============================================================================

// CreateTask creates a task under its project and recomputes the
// project's progress in the same operation.
//
// Description:
//
//	Defaults: status todo, priority medium, impact 0. Impact is rounded
//	to two decimals and validated against [0, 100]. Dependency edges
//	cannot be set at creation; use AddDependency so the DAG invariant
//	is enforced.
func (e *Engine) CreateTask(ctx context.Context, task *Task, actorID string) (*Task, error) {
	if task.Status == "" {
		task.Status = StatusTodo
	}
	if !task.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, task.Status)
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	task.Impact = Round2(task.Impact)
	if err := ValidateImpact(task.Impact); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.DependsOn = nil
	task.TimeLogs = nil
	task.ActiveTimer = nil

	unlock := e.lockProject(task.ProjectID)
	defer unlock()

	now := e.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == StatusDone {
		ts := now
		task.CompletedAt = &ts
	} else {
		task.CompletedAt = nil
	}

	if err := e.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	if err := e.onTaskSaved(ctx, task); err != nil {
		return nil, err
	}

	e.emit(events.TypeTaskCreated, actorID, events.TaskEventData{
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		Title:     task.Title,
		Status:    string(task.Status),
	})
	if task.Status == StatusDone {
		e.emit(events.TypeTaskCompleted, actorID, events.TaskEventData{
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			Title:     task.Title,
			Status:    string(task.Status),
		})
	}
	return task, nil
}

// UpdateTask applies field changes to a task and propagates progress.
//
// Description:
//
//	Ledger-owned fields (time_logs, active_timer, actual_hours when
//	time tracking is in use) and the dependency edge set are preserved
//	from the stored task; they mutate only through their dedicated
//	operations. Status transitions maintain completed_at: set when
//	entering done, cleared when leaving it. After the save the owning
//	project's progress is recomputed and associated milestones are
//	refreshed, all within the same operation.
func (e *Engine) UpdateTask(ctx context.Context, task *Task, actorID string) (*Task, error) {
	if !task.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, task.Status)
	}
	task.Impact = Round2(task.Impact)
	if err := ValidateImpact(task.Impact); err != nil {
		return nil, err
	}

	existing, err := e.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockProject(existing.ProjectID)
	defer unlock()

	// Re-read under the lock so concurrent writers don't interleave.
	existing, err = e.store.GetTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	task.ProjectID = existing.ProjectID
	task.DependsOn = existing.DependsOn
	task.TimeLogs = existing.TimeLogs
	task.ActiveTimer = existing.ActiveTimer
	if len(existing.TimeLogs) > 0 {
		// actual_hours is derived once time tracking is used.
		task.ActualHours = existing.ActualHours
	}
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = now

	wasDone := existing.Status == StatusDone
	isDone := task.Status == StatusDone
	switch {
	case isDone && !wasDone:
		ts := now
		task.CompletedAt = &ts
	case !isDone && wasDone:
		task.CompletedAt = nil
	default:
		task.CompletedAt = existing.CompletedAt
	}

	if err := e.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	if err := e.onTaskSaved(ctx, task); err != nil {
		return nil, err
	}

	e.emit(events.TypeTaskUpdated, actorID, events.TaskEventData{
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		Title:     task.Title,
		Status:    string(task.Status),
	})
	if isDone && !wasDone {
		e.emit(events.TypeTaskCompleted, actorID, events.TaskEventData{
			TaskID:    task.ID,
			ProjectID: task.ProjectID,
			Title:     task.Title,
			Status:    string(task.Status),
		})
	}
	return task, nil
}

// DeleteTask removes a task, cleans up references to it, and
// recomputes progress for the project and affected milestones.
func (e *Engine) DeleteTask(ctx context.Context, taskID, actorID string) error {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	unlock := e.lockProject(task.ProjectID)
	defer unlock()

	// Milestones referencing the task, captured before cleanup.
	milestones, err := e.store.ListMilestonesForTask(ctx, taskID)
	if err != nil {
		return err
	}

	if err := e.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	if _, err := e.agg.RecomputeProjectProgress(ctx, task.ProjectID); err != nil {
		return err
	}
	for _, m := range milestones {
		if err := e.agg.UpdateMilestoneProgress(ctx, m.ID); err != nil {
			return err
		}
	}

	e.emit(events.TypeTaskDeleted, actorID, events.TaskEventData{
		TaskID:    taskID,
		ProjectID: task.ProjectID,
		Title:     task.Title,
		Status:    string(task.Status),
	})
	return nil
}

// onTaskSaved propagates a task write: project progress recomputation
// plus refresh of every milestone whose task set contains the task.
//
// This is the explicit form of what the original system did as a
// hidden save hook, so ordering and error handling are visible to
// callers and tests.
func (e *Engine) onTaskSaved(ctx context.Context, task *Task) error {
	if _, err := e.agg.RecomputeProjectProgress(ctx, task.ProjectID); err != nil {
		return err
	}
	milestones, err := e.store.ListMilestonesForTask(ctx, task.ID)
	if err != nil {
		return err
	}
	for _, m := range milestones {
		if err := e.agg.UpdateMilestoneProgress(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Dependencies
// =============================================================================

// AddDependency validates and records a dependency edge.
func (e *Engine) AddDependency(ctx context.Context, taskID, dependencyID string) error {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		if taskID == dependencyID {
			return ErrSelfDependency
		}
		return err
	}
	unlock := e.lockProject(task.ProjectID)
	defer unlock()
	return e.graph.AddDependency(ctx, taskID, dependencyID)
}

// RemoveDependency removes a dependency edge if present.
func (e *Engine) RemoveDependency(ctx context.Context, taskID, dependencyID string) error {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	unlock := e.lockProject(task.ProjectID)
	defer unlock()
	return e.graph.RemoveDependency(ctx, taskID, dependencyID)
}

// CanStart reports whether every dependency of the task is done.
func (e *Engine) CanStart(ctx context.Context, taskID string) (bool, error) {
	return e.graph.CanStart(ctx, taskID)
}

// BlockedBy returns the not-yet-done dependencies of the task.
func (e *Engine) BlockedBy(ctx context.Context, taskID string) ([]*Task, error) {
	return e.graph.BlockedBy(ctx, taskID)
}

// BlockingTasks returns tasks that depend on the given task.
func (e *Engine) BlockingTasks(ctx context.Context, taskID string) ([]*Task, error) {
	return e.graph.BlockingTasks(ctx, taskID)
}

// =============================================================================
// Progress
// =============================================================================

// RecomputeProjectProgress forces a progress recomputation for the
// project. Idempotent.
func (e *Engine) RecomputeProjectProgress(ctx context.Context, projectID string) (int, error) {
	unlock := e.lockProject(projectID)
	defer unlock()
	return e.agg.RecomputeProjectProgress(ctx, projectID)
}

// UpdateMilestoneProgress recomputes a milestone's progress and derived
// status. Exposed for the manual refresh action; task writes already
// trigger it for affected milestones.
func (e *Engine) UpdateMilestoneProgress(ctx context.Context, milestoneID string) error {
	milestone, err := e.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	unlock := e.lockProject(milestone.ProjectID)
	defer unlock()
	return e.agg.UpdateMilestoneProgress(ctx, milestoneID)
}

// =============================================================================
// Milestones
// =============================================================================

// validateTaskSet resolves every id to a task in the given project.
// Call with the project lock held.
func (e *Engine) validateTaskSet(ctx context.Context, projectID string, taskIDs []string) error {
	for _, id := range taskIDs {
		task, err := e.store.GetTask(ctx, id)
		if err != nil {
			return fmt.Errorf("task %q: %w", id, err)
		}
		if task.ProjectID != projectID {
			return fmt.Errorf("task %q not in project %q: %w", id, projectID, ErrTaskNotFound)
		}
	}
	return nil
}

// CreateMilestone creates a milestone and computes its initial
// progress from the associated task set. Every task id must resolve
// to a task in the milestone's project.
func (e *Engine) CreateMilestone(ctx context.Context, milestone *Milestone) (*Milestone, error) {
	if milestone.ID == "" {
		milestone.ID = uuid.NewString()
	}
	if milestone.Status == "" {
		milestone.Status = MilestonePending
	}

	unlock := e.lockProject(milestone.ProjectID)
	defer unlock()

	if err := e.validateTaskSet(ctx, milestone.ProjectID, milestone.TaskIDs); err != nil {
		return nil, err
	}

	now := e.now()
	milestone.Progress = 0
	milestone.CompletedAt = nil
	milestone.CreatedAt = now
	milestone.UpdatedAt = now

	if err := e.store.SaveMilestone(ctx, milestone); err != nil {
		return nil, err
	}
	if len(milestone.TaskIDs) > 0 {
		if err := e.agg.UpdateMilestoneProgress(ctx, milestone.ID); err != nil {
			return nil, err
		}
		return e.store.GetMilestone(ctx, milestone.ID)
	}
	return milestone, nil
}

// UpdateMilestone applies field and task-set changes to a milestone,
// then recomputes its progress.
func (e *Engine) UpdateMilestone(ctx context.Context, milestone *Milestone) (*Milestone, error) {
	existing, err := e.store.GetMilestone(ctx, milestone.ID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockProject(existing.ProjectID)
	defer unlock()

	if err := e.validateTaskSet(ctx, existing.ProjectID, milestone.TaskIDs); err != nil {
		return nil, err
	}

	milestone.ProjectID = existing.ProjectID
	milestone.Progress = existing.Progress
	milestone.Status = existing.Status
	milestone.CompletedAt = existing.CompletedAt
	milestone.CreatedAt = existing.CreatedAt
	milestone.UpdatedAt = e.now()

	if err := e.store.SaveMilestone(ctx, milestone); err != nil {
		return nil, err
	}
	if len(milestone.TaskIDs) > 0 {
		if err := e.agg.UpdateMilestoneProgress(ctx, milestone.ID); err != nil {
			return nil, err
		}
	}
	return e.store.GetMilestone(ctx, milestone.ID)
}

// DeleteMilestone removes a milestone. Its tasks are unaffected.
func (e *Engine) DeleteMilestone(ctx context.Context, milestoneID string) error {
	milestone, err := e.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	unlock := e.lockProject(milestone.ProjectID)
	defer unlock()
	return e.store.DeleteMilestone(ctx, milestoneID)
}

// =============================================================================
// Time ledger
// =============================================================================

// StartTimer opens a timer on the task for the given user.
func (e *Engine) StartTimer(ctx context.Context, taskID, userID string) (*ActiveTimer, error) {
	return e.ledger.StartTimer(ctx, taskID, userID)
}

// StopTimer closes the task's open timer into a terminal entry.
func (e *Engine) StopTimer(ctx context.Context, taskID, note string) (*TimeEntry, error) {
	return e.ledger.StopTimer(ctx, taskID, note)
}

// LogManual appends a manual time entry.
func (e *Engine) LogManual(ctx context.Context, taskID, userID string, hours float64, note string, loggedAt *time.Time) (*TimeEntry, error) {
	return e.ledger.LogManual(ctx, taskID, userID, hours, note, loggedAt)
}

// TotalLoggedHours returns the task's total logged hours.
func (e *Engine) TotalLoggedHours(ctx context.Context, taskID string) (float64, error) {
	return e.ledger.TotalLoggedHours(ctx, taskID)
}

func (e *Engine) emit(eventType events.Type, actorID string, data any) {
	if e.emitter != nil {
		e.emitter.Emit(eventType, actorID, data)
	}
}
