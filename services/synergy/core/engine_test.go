// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/synergyos/synergy/services/synergy/events"
)

func newTestEngine(t *testing.T) (*Engine, *MemoryStore, *events.MockEmitter) {
	t.Helper()
	store := NewMemoryStore()
	mock := events.NewMockEmitter()
	engine := NewEngine(store, WithEmitter(mock))
	return engine, store, mock
}

func TestCreateTask_Defaults(t *testing.T) {
	engine, store, mock := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	task, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "first"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if task.ID == "" {
		t.Fatal("id not assigned")
	}
	if task.Status != StatusTodo {
		t.Fatalf("status %s, want todo", task.Status)
	}
	if task.Priority != PriorityMedium {
		t.Fatalf("priority %s, want medium", task.Priority)
	}
	if task.Impact != 0 {
		t.Fatalf("impact %v, want 0", task.Impact)
	}
	if task.CompletedAt != nil {
		t.Fatal("completed_at set for a todo task")
	}
	if n := len(mock.GetEventsByType(events.TypeTaskCreated)); n != 1 {
		t.Fatalf("expected 1 task.created, got %d", n)
	}
}

func TestCreateTask_ImpactBoundaries(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	tests := []struct {
		impact float64
		ok     bool
	}{
		{0, true},
		{100, true},
		{55.55, true},
		{-0.01, false},
		{100.01, false},
	}
	for _, tc := range tests {
		_, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "t", Impact: tc.impact}, "u1")
		if tc.ok && err != nil {
			t.Fatalf("impact %v: unexpected error %v", tc.impact, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidImpact) {
			t.Fatalf("impact %v: expected ErrInvalidImpact, got %v", tc.impact, err)
		}
	}
}

func TestCreateTask_InvalidStatus(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	seedProject(t, store, "p1")

	_, err := engine.CreateTask(context.Background(), &Task{ProjectID: "p1", Title: "t", Status: "archived"}, "u1")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateTask_CompletedAtTransitions(t *testing.T) {
	engine, store, mock := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	task, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "t", Impact: 50}, "u1")
	if err != nil {
		t.Fatal(err)
	}

	// todo -> done: completed_at set, task.completed emitted.
	task.Status = StatusDone
	task, err = engine.UpdateTask(ctx, task, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if task.CompletedAt == nil {
		t.Fatal("completed_at not set entering done")
	}
	firstCompleted := *task.CompletedAt
	if n := len(mock.GetEventsByType(events.TypeTaskCompleted)); n != 1 {
		t.Fatalf("expected 1 task.completed, got %d", n)
	}

	// done -> done: timestamp unchanged, no second event.
	task.Title = "renamed"
	task, err = engine.UpdateTask(ctx, task, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(firstCompleted) {
		t.Fatalf("completed_at changed on a done->done update")
	}
	if n := len(mock.GetEventsByType(events.TypeTaskCompleted)); n != 1 {
		t.Fatalf("task.completed re-emitted without a transition: %d", n)
	}

	// done -> in_progress: timestamp cleared.
	task.Status = StatusInProgress
	task, err = engine.UpdateTask(ctx, task, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if task.CompletedAt != nil {
		t.Fatal("completed_at not cleared leaving done")
	}
}

func TestUpdateTask_PreservesLedgerAndEdges(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	task, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "t"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	dep, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "dep"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.AddDependency(ctx, task.ID, dep.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.LogManual(ctx, task.ID, "u1", 2, "", nil); err != nil {
		t.Fatal(err)
	}

	// An update that carries none of the ledger/edge fields must not
	// wipe them.
	update := &Task{ID: task.ID, ProjectID: "p1", Title: "renamed", Status: StatusInProgress, Priority: PriorityHigh}
	updated, err := engine.UpdateTask(ctx, update, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated.DependsOn) != 1 || updated.DependsOn[0] != dep.ID {
		t.Fatalf("dependency edges lost: %v", updated.DependsOn)
	}
	if len(updated.TimeLogs) != 1 {
		t.Fatalf("time logs lost: %d entries", len(updated.TimeLogs))
	}
	if updated.ActualHours == nil || *updated.ActualHours != 2 {
		t.Fatalf("actual_hours lost: %v", updated.ActualHours)
	}
}

func TestTaskWrites_PropagateProgress(t *testing.T) {
	engine, store, mock := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	a, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "a", Impact: 30}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "b", Impact: 70}, "u1"); err != nil {
		t.Fatal(err)
	}

	a.Status = StatusDone
	if _, err := engine.UpdateTask(ctx, a, "u1"); err != nil {
		t.Fatal(err)
	}

	project, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if project.Progress != 30 {
		t.Fatalf("project progress %d, want 30", project.Progress)
	}
	if n := len(mock.GetEventsByType(events.TypeProgressChanged)); n != 1 {
		t.Fatalf("expected 1 progress.changed, got %d", n)
	}
}

func TestTaskWrites_RefreshMilestones(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	a, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "a"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "b"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	m, err := engine.CreateMilestone(ctx, &Milestone{
		ProjectID: "p1",
		Name:      "beta",
		DueDate:   time.Now().Add(72 * time.Hour),
		TaskIDs:   []string{a.ID, b.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	a.Status = StatusDone
	if _, err := engine.UpdateTask(ctx, a, "u1"); err != nil {
		t.Fatal(err)
	}

	m, err = store.GetMilestone(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if m.Progress != 50 || m.Status != MilestoneInProgress {
		t.Fatalf("milestone not refreshed by task write: %d/%s", m.Progress, m.Status)
	}
}

func TestDeleteTask_RecomputesAndCleans(t *testing.T) {
	engine, store, mock := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	a, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "a", Impact: 50, Status: StatusDone}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "b", Impact: 50}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	m, err := engine.CreateMilestone(ctx, &Milestone{
		ProjectID: "p1",
		Name:      "beta",
		DueDate:   time.Now().Add(72 * time.Hour),
		TaskIDs:   []string{a.ID, b.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	// a done out of a+b: project at 50.
	project, _ := store.GetProject(ctx, "p1")
	if project.Progress != 50 {
		t.Fatalf("setup progress %d, want 50", project.Progress)
	}

	if err := engine.DeleteTask(ctx, a.ID, "u1"); err != nil {
		t.Fatal(err)
	}

	// Only b (not done) remains: progress drops to 0.
	project, _ = store.GetProject(ctx, "p1")
	if project.Progress != 0 {
		t.Fatalf("progress after delete %d, want 0", project.Progress)
	}
	m, err = store.GetMilestone(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.TaskIDs) != 1 || m.TaskIDs[0] != b.ID {
		t.Fatalf("milestone task set not cleaned: %v", m.TaskIDs)
	}
	if n := len(mock.GetEventsByType(events.TypeTaskDeleted)); n != 1 {
		t.Fatalf("expected 1 task.deleted, got %d", n)
	}
}

func TestProjectLifecycle(t *testing.T) {
	engine, store, mock := newTestEngine(t)
	ctx := context.Background()

	project, err := engine.CreateProject(ctx, &Project{Name: "Apollo"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if project.Status != ProjectPlanning {
		t.Fatalf("status %s, want planning", project.Status)
	}
	if project.Progress != 0 {
		t.Fatalf("progress %d, want 0", project.Progress)
	}

	// Progress is aggregator-owned; a direct update cannot change it.
	if _, err := engine.CreateTask(ctx, &Task{ProjectID: project.ID, Title: "only", Status: StatusDone}, "u1"); err != nil {
		t.Fatal(err)
	}
	project.Progress = 7
	project.Status = ProjectActive
	project, err = engine.UpdateProject(ctx, project, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if project.Progress != 100 {
		t.Fatalf("update overrode aggregator progress: %d", project.Progress)
	}

	if err := engine.DeleteProject(ctx, project.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetProject(ctx, project.ID); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("project survived delete: %v", err)
	}
	if n := len(mock.GetEventsByType(events.TypeProjectDeleted)); n != 1 {
		t.Fatalf("expected 1 project.deleted, got %d", n)
	}
}

func TestMilestoneLifecycle(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")

	a, err := engine.CreateTask(ctx, &Task{ProjectID: "p1", Title: "a", Status: StatusDone}, "u1")
	if err != nil {
		t.Fatal(err)
	}

	m, err := engine.CreateMilestone(ctx, &Milestone{
		ProjectID: "p1",
		Name:      "alpha",
		DueDate:   time.Now().Add(24 * time.Hour),
		TaskIDs:   []string{a.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Progress != 100 || m.Status != MilestoneCompleted {
		t.Fatalf("created milestone %d/%s, want 100/completed", m.Progress, m.Status)
	}

	if err := engine.DeleteMilestone(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	// Its tasks are unaffected.
	if _, err := store.GetTask(ctx, a.ID); err != nil {
		t.Fatalf("task affected by milestone delete: %v", err)
	}
}

func TestMilestone_RejectsUnknownTaskIDs(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	seedProject(t, store, "p1")
	seedProject(t, store, "p2")

	_, err := engine.CreateMilestone(ctx, &Milestone{
		ProjectID: "p1",
		Name:      "alpha",
		DueDate:   time.Now().Add(24 * time.Hour),
		TaskIDs:   []string{"ghost-1", "ghost-2"},
	})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("create with unknown task ids: %v, want ErrTaskNotFound", err)
	}
	milestones, err := store.ListMilestones(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(milestones) != 0 {
		t.Fatalf("rejected milestone was persisted: %+v", milestones)
	}

	// A task from another project is just as invalid.
	other, err := engine.CreateTask(ctx, &Task{ProjectID: "p2", Title: "elsewhere"}, "u1")
	if err != nil {
		t.Fatal(err)
	}
	_, err = engine.CreateMilestone(ctx, &Milestone{
		ProjectID: "p1",
		Name:      "alpha",
		DueDate:   time.Now().Add(24 * time.Hour),
		TaskIDs:   []string{other.ID},
	})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("create with foreign task id: %v, want ErrTaskNotFound", err)
	}

	m, err := engine.CreateMilestone(ctx, &Milestone{
		ProjectID: "p1",
		Name:      "alpha",
		DueDate:   time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = engine.UpdateMilestone(ctx, &Milestone{
		ID:      m.ID,
		Name:    "alpha",
		DueDate: m.DueDate,
		TaskIDs: []string{"ghost-1"},
	})
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("update with unknown task id: %v, want ErrTaskNotFound", err)
	}
	kept, err := store.GetMilestone(ctx, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept.TaskIDs) != 0 {
		t.Fatalf("rejected task set was persisted: %+v", kept.TaskIDs)
	}
}

func TestEngine_AddDependencySelfOnMissingTask(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	err := engine.AddDependency(context.Background(), "ghost", "ghost")
	if !errors.Is(err, ErrSelfDependency) {
		t.Fatalf("expected ErrSelfDependency, got %v", err)
	}
}
