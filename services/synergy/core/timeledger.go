// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import (
	"context"
	"math"
	"sync"
	"time"
)

// TimeLedger maintains the append-only time log per task.
//
// Description:
//
//	Each task is a two-state machine: idle (no active timer) and
//	running (active timer set). StartTimer and StopTimer move between
//	the states; LogManual appends a closed entry directly. Entries are
//	never mutated once closed; only the currently open timer can be
//	closed into a terminal entry. Every append recomputes the task's
//	derived actual_hours.
//
// Thread Safety:
//
//	Timer start/stop per task is an atomic check-and-set: a per-task
//	mutex serializes concurrent calls so exactly one of two racing
//	StartTimer calls wins and the other fails with ErrAlreadyRunning.
type TimeLedger struct {
	store Store
	now   func() time.Time

	// taskLocks serializes timer mutations per task id.
	taskLocks sync.Map // task id -> *sync.Mutex
}

// NewTimeLedger creates a ledger over the given store.
func NewTimeLedger(store Store, now func() time.Time) *TimeLedger {
	if now == nil {
		now = time.Now
	}
	return &TimeLedger{store: store, now: now}
}

// StartTimer opens a timer on the task for the given user.
//
// Outputs:
//
//	*ActiveTimer - The opened timer marker.
//	error - ErrAlreadyRunning if a timer is open; ErrTaskNotFound if
//	the task does not exist. State is unchanged on failure.
func (l *TimeLedger) StartTimer(ctx context.Context, taskID, userID string) (*ActiveTimer, error) {
	unlock := l.lockTask(taskID)
	defer unlock()

	task, err := l.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ActiveTimer != nil {
		return nil, ErrAlreadyRunning
	}

	timer := &ActiveTimer{UserID: userID, StartTime: l.now()}
	task.ActiveTimer = timer
	task.UpdatedAt = l.now()
	if err := l.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return timer, nil
}

// StopTimer closes the task's open timer into a terminal entry.
//
// Description:
//
//	Computes the elapsed duration in whole minutes (truncated), appends
//	a closed TimeEntry, clears the active timer, and recomputes the
//	task's actual_hours.
//
// Outputs:
//
//	*TimeEntry - The appended entry.
//	error - ErrNoActiveTimer if no timer is open; ErrTaskNotFound if
//	the task does not exist. State is unchanged on failure.
func (l *TimeLedger) StopTimer(ctx context.Context, taskID, note string) (*TimeEntry, error) {
	unlock := l.lockTask(taskID)
	defer unlock()

	task, err := l.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ActiveTimer == nil {
		return nil, ErrNoActiveTimer
	}

	now := l.now()
	start := task.ActiveTimer.StartTime
	entry := TimeEntry{
		UserID:          task.ActiveTimer.UserID,
		StartTime:       &start,
		EndTime:         &now,
		DurationMinutes: int(now.Sub(start).Minutes()),
		Note:            note,
		LoggedAt:        now,
	}

	task.TimeLogs = append(task.TimeLogs, entry)
	task.ActiveTimer = nil
	refreshActualHours(task)
	task.UpdatedAt = now
	if err := l.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return &entry, nil
}

// LogManual appends a manual time entry with no start/end timestamps.
//
// Inputs:
//
//	hours - Must be > 0, else ErrInvalidHours. Converted to whole
//	minutes by rounding.
//	loggedAt - Optional entry timestamp; nil means now.
//
// Outputs:
//
//	*TimeEntry - The appended entry.
//	error - ErrInvalidHours or ErrTaskNotFound. State is unchanged on
//	failure.
func (l *TimeLedger) LogManual(ctx context.Context, taskID, userID string, hours float64, note string, loggedAt *time.Time) (*TimeEntry, error) {
	if hours <= 0 {
		return nil, ErrInvalidHours
	}

	unlock := l.lockTask(taskID)
	defer unlock()

	task, err := l.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	ts := now
	if loggedAt != nil {
		ts = *loggedAt
	}
	entry := TimeEntry{
		UserID:          userID,
		DurationMinutes: int(math.Round(hours * 60)),
		Note:            note,
		LoggedAt:        ts,
	}

	task.TimeLogs = append(task.TimeLogs, entry)
	refreshActualHours(task)
	task.UpdatedAt = now
	if err := l.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	return &entry, nil
}

// TotalLoggedHours returns the sum of all entries' durations in hours,
// rounded to two decimals. A task with no entries logs 0.
func (l *TimeLedger) TotalLoggedHours(ctx context.Context, taskID string) (float64, error) {
	task, err := l.store.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	return totalHours(task), nil
}

func (l *TimeLedger) lockTask(taskID string) func() {
	mu, _ := l.taskLocks.LoadOrStore(taskID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func totalHours(task *Task) float64 {
	minutes := 0
	for _, entry := range task.TimeLogs {
		minutes += entry.DurationMinutes
	}
	return Round2(float64(minutes) / 60)
}

// refreshActualHours recomputes the derived actual_hours field.
func refreshActualHours(task *Task) {
	hours := totalHours(task)
	task.ActualHours = &hours
}
