// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package templates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/synergyos/synergy/services/synergy/core"
)

type memStore struct {
	mu        sync.Mutex
	templates map[string]*Template
}

func newMemStore() *memStore {
	return &memStore{templates: map[string]*Template{}}
}

func (m *memStore) SaveTemplate(_ context.Context, t *Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memStore) GetTemplate(_ context.Context, id string) (*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListTemplates(_ context.Context) ([]*Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Template, 0, len(m.templates))
	for _, t := range m.templates {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, core.Store) {
	t.Helper()
	coreStore := core.NewMemoryStore()
	engine := core.NewEngine(coreStore, core.WithClock(func() time.Time { return testNow }))
	service := NewService(newMemStore(), engine, WithClock(func() time.Time { return testNow }))
	return service, coreStore
}

func hoursPtr(v float64) *float64 { return &v }
func daysPtr(v int) *int          { return &v }

func buildTemplate() *Template {
	return &Template{
		Name:                  "Product Launch",
		Description:           "Standard launch plan",
		Category:              "Marketing",
		DefaultPriority:       core.PriorityHigh,
		EstimatedDurationDays: daysPtr(30),
		CreatedBy:             "owner",
		Tasks: []TaskTemplate{
			{Title: "Draft announcement", Order: 1, Impact: 30, EstimatedHours: hoursPtr(4), DurationDays: daysPtr(3)},
			{Title: "Review announcement", Order: 2, Impact: 30, DependsOnOrder: []int{1}, StartOffsetDays: 3, DurationDays: daysPtr(2)},
			{Title: "Publish", Order: 3, Impact: 40, DependsOnOrder: []int{1, 2}, Priority: core.PriorityUrgent},
		},
		Milestones: []MilestoneTemplate{
			{Name: "Copy ready", DueOffsetDays: 7, TaskOrders: []int{1, 2}, Order: 1},
			{Name: "Live", DueOffsetDays: 14, TaskOrders: []int{3}, Order: 2},
		},
	}
}

func TestCreate_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Template)
	}{
		{"missing name", func(tm *Template) { tm.Name = "" }},
		{"duplicate order", func(tm *Template) { tm.Tasks[1].Order = 1 }},
		{"self dependency", func(tm *Template) { tm.Tasks[0].DependsOnOrder = []int{1} }},
		{"unknown dependency order", func(tm *Template) { tm.Tasks[1].DependsOnOrder = []int{99} }},
		{"milestone unknown order", func(tm *Template) { tm.Milestones[0].TaskOrders = []int{42} }},
		{"impact out of range", func(tm *Template) { tm.Tasks[0].Impact = 120 }},
		{"bad task priority", func(tm *Template) { tm.Tasks[0].Priority = "whenever" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service, _ := newTestService(t)
			tmpl := buildTemplate()
			tc.mutate(tmpl)
			if _, err := service.Create(context.Background(), tmpl); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreate_DefaultsAndRoundTrip(t *testing.T) {
	service, _ := newTestService(t)
	tmpl := buildTemplate()
	tmpl.Tasks[0].Priority = ""

	created, err := service.Create(context.Background(), tmpl)
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || !created.CreatedAt.Equal(testNow) {
		t.Fatalf("created = %+v", created)
	}
	if created.Tasks[0].Priority != core.PriorityHigh {
		t.Fatalf("task priority = %s, want template default", created.Tasks[0].Priority)
	}

	got, err := service.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Product Launch" || len(got.Tasks) != 3 {
		t.Fatalf("got = %+v", got)
	}
}

func TestInstantiate(t *testing.T) {
	service, coreStore := newTestService(t)
	created, err := service.Create(context.Background(), buildTemplate())
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	project, err := service.Instantiate(context.Background(), created.ID, InstantiateRequest{
		Name:      "June launch",
		OwnerID:   "owner",
		StartDate: &start,
	})
	if err != nil {
		t.Fatal(err)
	}

	if project.Status != core.ProjectPlanning || project.Priority != core.PriorityHigh {
		t.Fatalf("project = %+v", project)
	}
	if project.EndDate == nil || !project.EndDate.Equal(start.AddDate(0, 0, 30)) {
		t.Fatalf("end date = %v", project.EndDate)
	}
	if project.Progress != 0 {
		t.Fatalf("progress = %d, want 0", project.Progress)
	}

	ctx := context.Background()
	tasks, err := coreStore.ListTasks(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	byTitle := map[string]*core.Task{}
	for _, task := range tasks {
		byTitle[task.Title] = task
	}

	draft := byTitle["Draft announcement"]
	review := byTitle["Review announcement"]
	publish := byTitle["Publish"]
	if draft == nil || review == nil || publish == nil {
		t.Fatalf("missing tasks: %v", byTitle)
	}
	if !review.DependsOnTask(draft.ID) {
		t.Fatal("review should depend on draft")
	}
	if !publish.DependsOnTask(draft.ID) || !publish.DependsOnTask(review.ID) {
		t.Fatal("publish should depend on draft and review")
	}
	if publish.Priority != core.PriorityUrgent {
		t.Fatalf("publish priority = %s", publish.Priority)
	}
	if draft.DueDate == nil || !draft.DueDate.Equal(start.AddDate(0, 0, 3)) {
		t.Fatalf("draft due = %v", draft.DueDate)
	}
	if review.DueDate == nil || !review.DueDate.Equal(start.AddDate(0, 0, 5)) {
		t.Fatalf("review due = %v", review.DueDate)
	}
	if publish.DueDate != nil {
		t.Fatalf("publish due = %v, want nil without duration", publish.DueDate)
	}

	milestones, err := coreStore.ListMilestones(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(milestones) != 2 {
		t.Fatalf("got %d milestones, want 2", len(milestones))
	}
	for _, m := range milestones {
		switch m.Name {
		case "Copy ready":
			if !m.DueDate.Equal(start.AddDate(0, 0, 7)) || len(m.TaskIDs) != 2 {
				t.Fatalf("copy ready = %+v", m)
			}
		case "Live":
			if !m.DueDate.Equal(start.AddDate(0, 0, 14)) || len(m.TaskIDs) != 1 {
				t.Fatalf("live = %+v", m)
			}
		default:
			t.Fatalf("unexpected milestone %q", m.Name)
		}
		if m.Status != core.MilestonePending || m.Progress != 0 {
			t.Fatalf("milestone %q = %s/%d", m.Name, m.Status, m.Progress)
		}
	}
}

func TestInstantiate_UnknownTemplate(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.Instantiate(context.Background(), "nope", InstantiateRequest{Name: "x", OwnerID: "u"})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	service, _ := newTestService(t)
	created, err := service.Create(context.Background(), buildTemplate())
	if err != nil {
		t.Fatal(err)
	}
	if err := service.Delete(context.Background(), created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := service.Get(context.Background(), created.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
}
