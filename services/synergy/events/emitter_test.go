// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package events

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestEmit_DeliversToSubscriber(t *testing.T) {
	e := NewEmitter()

	var got *Event
	e.Subscribe(func(event *Event) {
		got = event
	}, TypeTaskCompleted)

	e.Emit(TypeTaskCompleted, "user-1", TaskEventData{TaskID: "t1", ProjectID: "p1"})

	if got == nil {
		t.Fatal("subscriber not invoked")
	}
	if got.Type != TypeTaskCompleted {
		t.Errorf("Type = %q, want %q", got.Type, TypeTaskCompleted)
	}
	if got.ActorID != "user-1" {
		t.Errorf("ActorID = %q, want user-1", got.ActorID)
	}
	data, ok := got.Data.(TaskEventData)
	if !ok {
		t.Fatalf("Data type = %T, want TaskEventData", got.Data)
	}
	if data.TaskID != "t1" {
		t.Errorf("TaskID = %q, want t1", data.TaskID)
	}
}

func TestEmit_TypeFiltering(t *testing.T) {
	e := NewEmitter()

	var calls int
	e.Subscribe(func(event *Event) {
		calls++
	}, TypeProgressChanged)

	e.Emit(TypeTaskCreated, "", nil)
	e.Emit(TypeProgressChanged, "", ProgressChangedData{ProjectID: "p1", NewProgress: 50})
	e.Emit(TypeTaskDeleted, "", nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestEmit_CustomFilter(t *testing.T) {
	e := NewEmitter()

	var calls int
	e.SubscribeWithFilter(func(event *Event) {
		calls++
	}, func(event *Event) bool {
		data, ok := event.Data.(ProgressChangedData)
		return ok && data.NewProgress == 100
	}, TypeProgressChanged)

	e.Emit(TypeProgressChanged, "", ProgressChangedData{NewProgress: 50})
	e.Emit(TypeProgressChanged, "", ProgressChangedData{NewProgress: 100})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestEmit_HandlerPanicRecovered(t *testing.T) {
	e := NewEmitter()

	e.Subscribe(func(event *Event) {
		panic("boom")
	})

	var survived bool
	e.Subscribe(func(event *Event) {
		survived = true
	})

	e.Emit(TypeTaskCreated, "", nil)

	if !survived {
		t.Error("second handler did not run after first panicked")
	}
}

func TestUnsubscribe(t *testing.T) {
	e := NewEmitter()

	var calls int
	id := e.Subscribe(func(event *Event) { calls++ })

	e.Emit(TypeTaskCreated, "", nil)

	if !e.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned false for existing subscription")
	}
	if e.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned true for removed subscription")
	}

	e.Emit(TypeTaskCreated, "", nil)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBuffer_CapAndRetrieval(t *testing.T) {
	e := NewEmitter(WithBufferSize(2))

	e.Emit(TypeTaskCreated, "", TaskEventData{TaskID: "a"})
	e.Emit(TypeTaskUpdated, "", TaskEventData{TaskID: "b"})
	e.Emit(TypeTaskDeleted, "", TaskEventData{TaskID: "c"})

	buf := e.GetBuffer()
	if len(buf) != 2 {
		t.Fatalf("buffer len = %d, want 2", len(buf))
	}
	// Oldest event evicted
	if buf[0].Type != TypeTaskUpdated {
		t.Errorf("buf[0].Type = %q, want %q", buf[0].Type, TypeTaskUpdated)
	}

	byType := e.GetBufferByType(TypeTaskDeleted)
	if len(byType) != 1 {
		t.Fatalf("byType len = %d, want 1", len(byType))
	}

	e.ClearBuffer()
	if len(e.GetBuffer()) != 0 {
		t.Error("buffer not empty after ClearBuffer")
	}
}

func TestEmit_ConcurrentSafe(t *testing.T) {
	e := NewEmitter()

	var count atomic.Int64
	e.Subscribe(func(event *Event) {
		count.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				e.Emit(TypeTaskUpdated, "", nil)
			}
		}()
	}
	wg.Wait()

	if count.Load() != 1000 {
		t.Errorf("count = %d, want 1000", count.Load())
	}
}

func TestMockEmitter_Records(t *testing.T) {
	m := NewMockEmitter()

	m.Emit(TypeTaskCompleted, "u1", TaskEventData{TaskID: "t1"})
	m.Emit(TypeProgressChanged, "u1", ProgressChangedData{ProjectID: "p1"})

	if m.EventCount() != 2 {
		t.Errorf("EventCount = %d, want 2", m.EventCount())
	}
	if len(m.GetEventsByType(TypeTaskCompleted)) != 1 {
		t.Error("expected 1 task.completed event")
	}

	m.Clear()
	if m.EventCount() != 0 {
		t.Error("EventCount != 0 after Clear")
	}
}
