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
	"time"

	"github.com/synergyos/synergy/services/synergy/events"
)

// Aggregator computes and persists project and milestone progress.
//
// Description:
//
//	Project progress is weighted by task impact: the completed share of
//	total declared impact, floored to an integer and capped at 100.
//	When no task carries impact the computation falls back to the
//	unweighted completed/total ratio. Milestone progress is always the
//	unweighted ratio over the milestone's own task subset; the
//	asymmetry with project progress is intentional.
//
//	Recomputation is idempotent: running it twice with no intervening
//	task change yields the same stored value, and events fire only when
//	the stored value actually changes.
type Aggregator struct {
	store   Store
	emitter events.Publisher
	now     func() time.Time
}

// NewAggregator creates an aggregator. emitter may be nil when no
// subsystem listens for progress events.
func NewAggregator(store Store, emitter events.Publisher, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{store: store, emitter: emitter, now: now}
}

// RecomputeProjectProgress recomputes and persists a project's progress
// from the current state of all its tasks.
//
// Description:
//
//	Reads every task owned by the project, computes the weighted (or
//	fallback unweighted) completion percentage, and persists it when it
//	differs from the stored value. Emits progress.changed only on an
//	actual change. Pure arithmetic over already-valid data: this never
//	fails under normal operation.
//
// Outputs:
//
//	int - The computed progress in [0, 100].
//	error - Non-nil only if the project does not exist or the store fails.
func (a *Aggregator) RecomputeProjectProgress(ctx context.Context, projectID string) (int, error) {
	project, err := a.store.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	tasks, err := a.store.ListTasks(ctx, projectID)
	if err != nil {
		return 0, err
	}

	progress := WeightedProgress(tasks)
	if progress == project.Progress {
		return progress, nil
	}

	old := project.Progress
	project.Progress = progress
	project.UpdatedAt = a.now()
	if err := a.store.SaveProject(ctx, project); err != nil {
		return 0, fmt.Errorf("persist project progress: %w", err)
	}

	if a.emitter != nil {
		a.emitter.Emit(events.TypeProgressChanged, "", events.ProgressChangedData{
			ProjectID:   projectID,
			OldProgress: old,
			NewProgress: progress,
		})
	}
	return progress, nil
}

// WeightedProgress computes the impact-weighted completion percentage
// for a set of tasks.
//
// Description:
//
//	total_impact = sum of all task impacts. When positive, progress is
//	floor(min(100, completed_impact / total_impact * 100)). When zero
//	(no task carries weight), progress falls back to the unweighted
//	ratio floor(completed / total * 100), or 0 for an empty set.
func WeightedProgress(tasks []*Task) int {
	if len(tasks) == 0 {
		return 0
	}

	var totalImpact, completedImpact float64
	completed := 0
	for _, task := range tasks {
		totalImpact += task.Impact
		if task.Status == StatusDone {
			completedImpact += task.Impact
			completed++
		}
	}

	if totalImpact > 0 {
		progress := int(completedImpact / totalImpact * 100)
		if progress > 100 {
			progress = 100
		}
		return progress
	}
	return completed * 100 / len(tasks)
}

// UpdateMilestoneProgress recomputes a milestone's progress and derives
// its status.
//
// Description:
//
//	progress = floor(completed / total * 100), unweighted; impact is
//	not consulted for milestones. An empty task set is a documented
//	no-op: progress and status stay as they are.
//
//	Status derivation, in order:
//	  1. progress == 100: completed; completed_at set once.
//	  2. progress > 0: in_progress.
//	  3. Override: due date in the past and not completed: missed.
//
//	Emits milestone.completed / milestone.missed on the corresponding
//	status transitions.
//
// Outputs:
//
//	error - Non-nil only if the milestone does not exist or the store fails.
func (a *Aggregator) UpdateMilestoneProgress(ctx context.Context, milestoneID string) error {
	milestone, err := a.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	tasks, err := a.store.ListTasksForMilestone(ctx, milestoneID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	completed := 0
	for _, task := range tasks {
		if task.Status == StatusDone {
			completed++
		}
	}
	progress := completed * 100 / len(tasks)

	oldStatus := milestone.Status
	now := a.now()

	status := milestone.Status
	switch {
	case progress == 100:
		status = MilestoneCompleted
		if milestone.CompletedAt == nil {
			ts := now
			milestone.CompletedAt = &ts
		}
	case progress > 0:
		status = MilestoneInProgress
	default:
		status = MilestonePending
	}
	if status != MilestoneCompleted && milestone.DueDate.Before(now) {
		status = MilestoneMissed
	}
	if status != MilestoneCompleted {
		milestone.CompletedAt = nil
	}

	if progress == milestone.Progress && status == oldStatus {
		return nil
	}

	milestone.Progress = progress
	milestone.Status = status
	milestone.UpdatedAt = now
	if err := a.store.SaveMilestone(ctx, milestone); err != nil {
		return fmt.Errorf("persist milestone progress: %w", err)
	}

	if a.emitter != nil && status != oldStatus {
		data := events.MilestoneEventData{
			MilestoneID: milestone.ID,
			ProjectID:   milestone.ProjectID,
			Name:        milestone.Name,
			Progress:    progress,
			Status:      string(status),
		}
		switch status {
		case MilestoneCompleted:
			a.emitter.Emit(events.TypeMilestoneCompleted, "", data)
		case MilestoneMissed:
			a.emitter.Emit(events.TypeMilestoneMissed, "", data)
		}
	}
	return nil
}
