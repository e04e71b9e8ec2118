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
)

// GraphValidator enforces the DAG invariant over task dependency edges.
//
// Description:
//
//	GraphValidator is the sole mutator of the depends_on relation.
//	AddDependency rejects self-loops and any edge that would close a
//	cycle, checked by full reachability over the existing edges (not
//	just the immediate inverse). CanStart and BlockedBy are read-side
//	queries; they treat dangling edges conservatively (a missing
//	dependency counts as not done) and never fail on stale data.
//
// Thread Safety:
//
//	GraphValidator itself is stateless. Callers that need write
//	serialization (engine) hold the project lock around AddDependency /
//	RemoveDependency.
type GraphValidator struct {
	store Store
}

// NewGraphValidator creates a validator over the given store.
func NewGraphValidator(store Store) *GraphValidator {
	return &GraphValidator{store: store}
}

// AddDependency records that task cannot start until dependency is done.
//
// Description:
//
//	Validates and persists a directed, non-symmetric edge
//	task -> dependency. The edge is rejected with ErrSelfDependency if
//	both ids are equal, and with ErrCyclicDependency if task is already
//	reachable from dependency via existing edges; this catches direct
//	2-cycles and longer chains alike. Adding an edge that already
//	exists is a no-op.
//
// Inputs:
//
//	taskID - The dependent task.
//	dependencyID - The task that must complete first.
//
// Outputs:
//
//	error - nil on success; ErrSelfDependency, ErrCyclicDependency, or
//	ErrTaskNotFound on rejection. No partial state is left behind.
func (g *GraphValidator) AddDependency(ctx context.Context, taskID, dependencyID string) error {
	if taskID == dependencyID {
		return ErrSelfDependency
	}

	task, err := g.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if _, err := g.store.GetTask(ctx, dependencyID); err != nil {
		return fmt.Errorf("load dependency %s: %w", dependencyID, err)
	}

	if task.DependsOnTask(dependencyID) {
		return nil
	}

	reachable, err := g.reachable(ctx, dependencyID, taskID)
	if err != nil {
		return err
	}
	if reachable {
		return ErrCyclicDependency
	}

	task.DependsOn = append(task.DependsOn, dependencyID)
	return g.store.SaveTask(ctx, task)
}

// RemoveDependency deletes the edge task -> dependency if present.
//
// Removing an edge that does not exist is a no-op.
func (g *GraphValidator) RemoveDependency(ctx context.Context, taskID, dependencyID string) error {
	task, err := g.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if !task.DependsOnTask(dependencyID) {
		return nil
	}
	task.DependsOn = removeString(task.DependsOn, dependencyID)
	return g.store.SaveTask(ctx, task)
}

// CanStart reports whether every dependency of the task is done.
//
// Description:
//
//	A task with no dependencies can always start. Dependency ids that
//	no longer resolve to a task are treated as not done (conservative)
//	rather than raising, so the query is total over stale edges.
//
// Outputs:
//
//	bool - True iff all dependencies resolve to done tasks.
//	error - Non-nil only if the task itself does not exist.
func (g *GraphValidator) CanStart(ctx context.Context, taskID string) (bool, error) {
	task, err := g.store.GetTask(ctx, taskID)
	if err != nil {
		return false, err
	}
	for _, depID := range task.DependsOn {
		dep, err := g.store.GetTask(ctx, depID)
		if err != nil || dep.Status != StatusDone {
			return false, nil
		}
	}
	return true, nil
}

// BlockedBy returns the dependencies of the task that are not yet done.
//
// This is advisory, for UI and diagnostics; the write path does not
// prevent work on a blocked task. Dangling dependency ids are omitted.
func (g *GraphValidator) BlockedBy(ctx context.Context, taskID string) ([]*Task, error) {
	task, err := g.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	var blocked []*Task
	for _, depID := range task.DependsOn {
		dep, err := g.store.GetTask(ctx, depID)
		if err != nil {
			continue
		}
		if dep.Status != StatusDone {
			blocked = append(blocked, dep)
		}
	}
	return blocked, nil
}

// BlockingTasks returns the tasks that depend on the given task, the
// computed inverse of depends_on within the task's project.
func (g *GraphValidator) BlockingTasks(ctx context.Context, taskID string) ([]*Task, error) {
	task, err := g.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	siblings, err := g.store.ListTasks(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	var blocking []*Task
	for _, sibling := range siblings {
		if sibling.DependsOnTask(taskID) {
			blocking = append(blocking, sibling)
		}
	}
	return blocking, nil
}

// reachable reports whether target is reachable from start by walking
// depends_on edges. Iterative DFS; dangling edges are skipped.
func (g *GraphValidator) reachable(ctx context.Context, start, target string) (bool, error) {
	visited := map[string]bool{start: true}
	stack := []string{start}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == target {
			return true, nil
		}

		task, err := g.store.GetTask(ctx, current)
		if err != nil {
			// Stale edge; nothing to walk through.
			continue
		}
		for _, depID := range task.DependsOn {
			if !visited[depID] {
				visited[depID] = true
				stack = append(stack, depID)
			}
		}
	}
	return false, nil
}
