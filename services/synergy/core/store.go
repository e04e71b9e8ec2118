// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import (
	"context"
	"sort"
	"sync"
)

// Store is the persistence boundary the engine operates over.
//
// Implementations must provide read-your-writes consistency within a
// single call: a SaveTask followed by a ListTasks in the same operation
// sees the saved task. Cross-writer serialization is the engine's job
// (per-project locks), not the store's.
//
// Delete operations owe referential cleanup: DeleteTask removes the id
// from every other task's depends_on and from every milestone's task
// set; DeleteProject cascades to its tasks and milestones.
type Store interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, projectID string) ([]*Task, error)
	SaveTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id string) error

	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	SaveProject(ctx context.Context, project *Project) error
	DeleteProject(ctx context.Context, id string) error

	GetMilestone(ctx context.Context, id string) (*Milestone, error)
	ListMilestones(ctx context.Context, projectID string) ([]*Milestone, error)
	ListTasksForMilestone(ctx context.Context, milestoneID string) ([]*Task, error)
	ListMilestonesForTask(ctx context.Context, taskID string) ([]*Milestone, error)
	SaveMilestone(ctx context.Context, milestone *Milestone) error
	DeleteMilestone(ctx context.Context, id string) error
}

// MemoryStore is an in-memory Store for tests and ephemeral use.
//
// Thread Safety: MemoryStore is safe for concurrent use. All records
// are cloned on the way in and out, so callers never share memory with
// the store.
type MemoryStore struct {
	mu         sync.RWMutex
	tasks      map[string]*Task
	projects   map[string]*Project
	milestones map[string]*Milestone
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:      make(map[string]*Task),
		projects:   make(map[string]*Project),
		milestones: make(map[string]*Milestone),
	}
}

// GetTask returns the task with the given id.
func (s *MemoryStore) GetTask(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task.Clone(), nil
}

// ListTasks returns all tasks owned by the project, ordered by creation
// time then id for determinism.
func (s *MemoryStore) ListTasks(_ context.Context, projectID string) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projects[projectID]; !ok {
		return nil, ErrProjectNotFound
	}

	var tasks []*Task
	for _, task := range s.tasks {
		if task.ProjectID == projectID {
			tasks = append(tasks, task.Clone())
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

// SaveTask inserts or replaces a task. The owning project must exist.
func (s *MemoryStore) SaveTask(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[task.ProjectID]; !ok {
		return ErrProjectNotFound
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

// DeleteTask removes a task and cleans up dangling references: the id
// is removed from every other task's depends_on set and from every
// milestone's task set.
func (s *MemoryStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)

	for _, task := range s.tasks {
		task.DependsOn = removeString(task.DependsOn, id)
	}
	for _, m := range s.milestones {
		m.TaskIDs = removeString(m.TaskIDs, id)
	}
	return nil
}

// GetProject returns the project with the given id.
func (s *MemoryStore) GetProject(_ context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return project.Clone(), nil
}

// ListProjects returns all projects ordered by creation time.
func (s *MemoryStore) ListProjects(_ context.Context) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, p.Clone())
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

// SaveProject inserts or replaces a project.
func (s *MemoryStore) SaveProject(_ context.Context, project *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[project.ID] = project.Clone()
	return nil
}

// DeleteProject removes a project and cascades to its tasks and
// milestones.
func (s *MemoryStore) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return ErrProjectNotFound
	}
	delete(s.projects, id)

	var removedTasks []string
	for tid, task := range s.tasks {
		if task.ProjectID == id {
			removedTasks = append(removedTasks, tid)
			delete(s.tasks, tid)
		}
	}
	for mid, m := range s.milestones {
		if m.ProjectID == id {
			delete(s.milestones, mid)
		}
	}
	// Remove cross-project dependency edges pointing at deleted tasks.
	for _, task := range s.tasks {
		for _, removed := range removedTasks {
			task.DependsOn = removeString(task.DependsOn, removed)
		}
	}
	return nil
}

// GetMilestone returns the milestone with the given id.
func (s *MemoryStore) GetMilestone(_ context.Context, id string) (*Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.milestones[id]
	if !ok {
		return nil, ErrMilestoneNotFound
	}
	return m.Clone(), nil
}

// ListMilestones returns a project's milestones ordered by due date.
func (s *MemoryStore) ListMilestones(_ context.Context, projectID string) ([]*Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projects[projectID]; !ok {
		return nil, ErrProjectNotFound
	}

	var milestones []*Milestone
	for _, m := range s.milestones {
		if m.ProjectID == projectID {
			milestones = append(milestones, m.Clone())
		}
	}
	sort.Slice(milestones, func(i, j int) bool {
		if milestones[i].DueDate.Equal(milestones[j].DueDate) {
			return milestones[i].ID < milestones[j].ID
		}
		return milestones[i].DueDate.Before(milestones[j].DueDate)
	})
	return milestones, nil
}

// ListTasksForMilestone resolves the milestone's task set. Task ids
// that no longer resolve are skipped rather than erroring, so stale
// associations never poison progress computation.
func (s *MemoryStore) ListTasksForMilestone(_ context.Context, milestoneID string) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.milestones[milestoneID]
	if !ok {
		return nil, ErrMilestoneNotFound
	}

	var tasks []*Task
	for _, tid := range m.TaskIDs {
		if task, ok := s.tasks[tid]; ok {
			tasks = append(tasks, task.Clone())
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

// ListMilestonesForTask returns every milestone whose task set contains
// the given task.
func (s *MemoryStore) ListMilestonesForTask(_ context.Context, taskID string) ([]*Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var milestones []*Milestone
	for _, m := range s.milestones {
		if m.HasTask(taskID) {
			milestones = append(milestones, m.Clone())
		}
	}
	sort.Slice(milestones, func(i, j int) bool {
		return milestones[i].ID < milestones[j].ID
	})
	return milestones, nil
}

// SaveMilestone inserts or replaces a milestone. The owning project
// must exist.
func (s *MemoryStore) SaveMilestone(_ context.Context, milestone *Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[milestone.ProjectID]; !ok {
		return ErrProjectNotFound
	}
	s.milestones[milestone.ID] = milestone.Clone()
	return nil
}

// DeleteMilestone removes a milestone. Tasks are not affected.
func (s *MemoryStore) DeleteMilestone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.milestones[id]; !ok {
		return ErrMilestoneNotFound
	}
	delete(s.milestones, id)
	return nil
}

func sortTasks(tasks []*Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
