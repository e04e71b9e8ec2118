// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import (
	"context"
	"testing"
	"time"
)

// seedProject inserts a project directly into the store.
func seedProject(t *testing.T, store Store, id string) *Project {
	t.Helper()
	project := &Project{
		ID:        id,
		Name:      "project " + id,
		Status:    ProjectActive,
		Priority:  PriorityMedium,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.SaveProject(context.Background(), project); err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
	return project
}

// seedTask inserts a task directly into the store, bypassing the
// engine, so tests control every field.
func seedTask(t *testing.T, store Store, id, projectID string, status Status, impact float64) *Task {
	t.Helper()
	now := time.Now()
	task := &Task{
		ID:        id,
		ProjectID: projectID,
		Title:     "task " + id,
		Status:    status,
		Priority:  PriorityMedium,
		Impact:    impact,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == StatusDone {
		task.CompletedAt = &now
	}
	if err := store.SaveTask(context.Background(), task); err != nil {
		t.Fatalf("seed task %s: %v", id, err)
	}
	return task
}

// seedMilestone inserts a milestone directly into the store.
func seedMilestone(t *testing.T, store Store, id, projectID string, due time.Time, taskIDs ...string) *Milestone {
	t.Helper()
	milestone := &Milestone{
		ID:        id,
		ProjectID: projectID,
		Name:      "milestone " + id,
		Status:    MilestonePending,
		DueDate:   due,
		TaskIDs:   taskIDs,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.SaveMilestone(context.Background(), milestone); err != nil {
		t.Fatalf("seed milestone %s: %v", id, err)
	}
	return milestone
}
