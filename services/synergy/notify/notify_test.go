// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notify

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/synergyos/synergy/services/synergy/core"
	"github.com/synergyos/synergy/services/synergy/events"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu            sync.Mutex
	notifications map[string]*Notification
}

func newMemStore() *memStore {
	return &memStore{notifications: make(map[string]*Notification)}
}

func (m *memStore) SaveNotification(_ context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *memStore) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountUnread(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkRead(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.notifications[id]; ok && n.UserID == userID {
		n.Read = true
	}
	return nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}

func newTestService(t *testing.T) (*Service, *memStore, core.Store) {
	t.Helper()
	coreStore := core.NewMemoryStore()
	store := newMemStore()
	return NewService(store, coreStore), store, coreStore
}

func seedAudience(t *testing.T, coreStore core.Store) {
	t.Helper()
	now := time.Now()
	if err := coreStore.SaveProject(context.Background(), &core.Project{
		ID: "p1", Name: "Apollo", Status: core.ProjectActive,
		Priority: core.PriorityMedium, OwnerID: "owner",
		MemberIDs: []string{"alice", "bob"},
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestHandleEvent_TaskCompletedFanout(t *testing.T) {
	service, _, coreStore := newTestService(t)
	seedAudience(t, coreStore)
	ctx := context.Background()

	service.HandleEvent(&events.Event{
		Type:    events.TypeTaskCompleted,
		ActorID: "alice",
		Data:    events.TaskEventData{TaskID: "t1", ProjectID: "p1", Title: "ship it", Status: "done"},
	})

	// The actor is excluded from the audience.
	if _, count, _ := service.Unread(ctx, "alice", 10); count != 0 {
		t.Fatalf("actor notified: %d unread", count)
	}
	for _, userID := range []string{"owner", "bob"} {
		list, count, err := service.Unread(ctx, userID, 10)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Fatalf("%s: %d unread, want 1", userID, count)
		}
		if list[0].Type != TypeTaskCompleted || list[0].ResourceID != "t1" {
			t.Fatalf("%s: notification = %+v", userID, list[0])
		}
	}
}

func TestHandleEvent_MilestoneMissed(t *testing.T) {
	service, _, coreStore := newTestService(t)
	seedAudience(t, coreStore)
	ctx := context.Background()

	service.HandleEvent(&events.Event{
		Type: events.TypeMilestoneMissed,
		Data: events.MilestoneEventData{
			MilestoneID: "m1", ProjectID: "p1", Name: "beta", Progress: 50, Status: "missed",
		},
	})

	list, count, err := service.Unread(ctx, "owner", 10)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || list[0].Type != TypeMilestoneOverdue {
		t.Fatalf("owner notifications = %+v", list)
	}
}

func TestMarkRead(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := service.Notify(ctx, &Notification{
			UserID: "u1", Type: TypeSystem, Title: "hello",
		}); err != nil {
			t.Fatal(err)
		}
	}

	list, count, err := service.Unread(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("unread = %d, want 3", count)
	}

	if err := service.MarkRead(ctx, list[0].ID, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, count, _ = service.Unread(ctx, "u1", 10); count != 2 {
		t.Fatalf("unread after mark = %d, want 2", count)
	}

	changed, err := service.MarkAllRead(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if changed != 2 {
		t.Fatalf("mark all changed %d, want 2", changed)
	}
	if _, count, _ = service.Unread(ctx, "u1", 10); count != 0 {
		t.Fatalf("unread after mark all = %d, want 0", count)
	}
}

func TestAttach_SubscribesToEmitter(t *testing.T) {
	service, _, coreStore := newTestService(t)
	seedAudience(t, coreStore)

	emitter := events.NewEmitter()
	if id := service.Attach(emitter); id == "" {
		t.Fatal("no subscription id")
	}

	emitter.Emit(events.TypeTaskCompleted, "alice",
		events.TaskEventData{TaskID: "t1", ProjectID: "p1", Title: "done", Status: "done"})

	_, count, err := service.Unread(context.Background(), "bob", 10)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("emitter-driven notification missing: %d unread", count)
	}
}
