// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/synergyos/synergy/services/synergy/core"
)

const taskColumns = `id, project_id, title, description, status, priority, assignee_id,
	impact, due_date, estimated_hours, actual_hours, time_logs, active_timer,
	created_at, updated_at, completed_at`

// GetTask returns the task with the given id, dependency edges
// included.
func (s *Store) GetTask(ctx context.Context, id string) (*core.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrTaskNotFound
		}
		return nil, err
	}
	if err := s.loadDependencies(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns the project's tasks ordered by creation time.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]*core.Task, error) {
	if err := s.projectExists(ctx, projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at, id`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*core.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if err := s.loadDependencies(ctx, task); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

// SaveTask inserts or replaces a task and rewrites its dependency
// edges to match task.DependsOn.
func (s *Store) SaveTask(ctx context.Context, task *core.Task) error {
	if err := s.projectExists(ctx, task.ProjectID); err != nil {
		return err
	}

	timeLogs, err := json.Marshal(task.TimeLogs)
	if err != nil {
		return fmt.Errorf("marshal time logs: %w", err)
	}
	if task.TimeLogs == nil {
		timeLogs = []byte("[]")
	}
	var activeTimer sql.NullString
	if task.ActiveTimer != nil {
		raw, err := json.Marshal(task.ActiveTimer)
		if err != nil {
			return fmt.Errorf("marshal active timer: %w", err)
		}
		activeTimer = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO tasks
		(id, project_id, title, description, status, priority, assignee_id,
		 impact, due_date, estimated_hours, actual_hours, time_logs, active_timer,
		 created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			assignee_id = excluded.assignee_id,
			impact = excluded.impact,
			due_date = excluded.due_date,
			estimated_hours = excluded.estimated_hours,
			actual_hours = excluded.actual_hours,
			time_logs = excluded.time_logs,
			active_timer = excluded.active_timer,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at`,
		task.ID, task.ProjectID, task.Title, task.Description,
		string(task.Status), string(task.Priority), task.AssigneeID,
		task.Impact, encodeTimePtr(task.DueDate), nullFloat(task.EstimatedHours),
		nullFloat(task.ActualHours), string(timeLogs), activeTimer,
		encodeTime(task.CreatedAt), encodeTime(task.UpdatedAt),
		encodeTimePtr(task.CompletedAt))
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM task_dependencies WHERE task_id = ?`, task.ID); err != nil {
		return err
	}
	for _, depID := range task.DependsOn {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_dependencies (task_id, depends_on_id) VALUES (?, ?)`,
			task.ID, depID); err != nil {
			return fmt.Errorf("save dependency edge: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteTask removes a task. The join-table cascades clean up both
// dependency edges and milestone associations.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrTaskNotFound
	}
	return nil
}

func (s *Store) loadDependencies(ctx context.Context, task *core.Task) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT depends_on_id FROM task_dependencies WHERE task_id = ? ORDER BY depends_on_id`,
		task.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	task.DependsOn = nil
	for rows.Next() {
		var depID string
		if err := rows.Scan(&depID); err != nil {
			return err
		}
		task.DependsOn = append(task.DependsOn, depID)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*core.Task, error) {
	var (
		task                           core.Task
		status, priority               string
		dueDate, completedAt           sql.NullString
		estimatedHours, actualHours    sql.NullFloat64
		timeLogs                       string
		activeTimer                    sql.NullString
		createdAtRaw, updatedAtRaw     string
	)
	err := row.Scan(&task.ID, &task.ProjectID, &task.Title, &task.Description,
		&status, &priority, &task.AssigneeID, &task.Impact,
		&dueDate, &estimatedHours, &actualHours, &timeLogs, &activeTimer,
		&createdAtRaw, &updatedAtRaw, &completedAt)
	if err != nil {
		return nil, err
	}

	task.Status = core.Status(status)
	task.Priority = core.Priority(priority)
	task.EstimatedHours = floatPtr(estimatedHours)
	task.ActualHours = floatPtr(actualHours)

	if timeLogs != "" && timeLogs != "[]" {
		if err := json.Unmarshal([]byte(timeLogs), &task.TimeLogs); err != nil {
			return nil, fmt.Errorf("decode time logs for task %s: %w", task.ID, err)
		}
	}
	if activeTimer.Valid {
		var at core.ActiveTimer
		if err := json.Unmarshal([]byte(activeTimer.String), &at); err != nil {
			return nil, fmt.Errorf("decode active timer for task %s: %w", task.ID, err)
		}
		task.ActiveTimer = &at
	}

	if task.DueDate, err = decodeTimePtr(dueDate); err != nil {
		return nil, err
	}
	if task.CompletedAt, err = decodeTimePtr(completedAt); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = decodeTime(updatedAtRaw); err != nil {
		return nil, err
	}
	return &task, nil
}
