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
	"errors"
	"fmt"

	"github.com/synergyos/synergy/services/synergy/core"
)

const milestoneColumns = `id, project_id, name, description, status, due_date,
	progress, completed_at, created_at, updated_at`

// GetMilestone returns the milestone with the given id, task set
// included.
func (s *Store) GetMilestone(ctx context.Context, id string) (*core.Milestone, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id)
	milestone, err := scanMilestone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrMilestoneNotFound
		}
		return nil, err
	}
	if err := s.loadMilestoneTasks(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// ListMilestones returns the project's milestones ordered by due date.
func (s *Store) ListMilestones(ctx context.Context, projectID string) ([]*core.Milestone, error) {
	if err := s.projectExists(ctx, projectID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones WHERE project_id = ? ORDER BY due_date, id`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []*core.Milestone
	for rows.Next() {
		milestone, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, milestone)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, milestone := range milestones {
		if err := s.loadMilestoneTasks(ctx, milestone); err != nil {
			return nil, err
		}
	}
	return milestones, nil
}

// ListTasksForMilestone resolves the milestone's task set in
// association order. The join rows cascade on task deletion, so no
// stale ids survive here.
func (s *Store) ListTasksForMilestone(ctx context.Context, milestoneID string) ([]*core.Task, error) {
	if err := s.milestoneExists(ctx, milestoneID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+`
		FROM tasks
		JOIN milestone_tasks mt ON mt.task_id = tasks.id
		WHERE mt.milestone_id = ?
		ORDER BY tasks.created_at, tasks.id`, milestoneID)
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

// ListMilestonesForTask returns every milestone whose task set contains
// the given task.
func (s *Store) ListMilestonesForTask(ctx context.Context, taskID string) ([]*core.Milestone, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+milestoneColumns+`
		FROM milestones
		JOIN milestone_tasks mt ON mt.milestone_id = milestones.id
		WHERE mt.task_id = ?
		ORDER BY milestones.id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []*core.Milestone
	for rows.Next() {
		milestone, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, milestone)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, milestone := range milestones {
		if err := s.loadMilestoneTasks(ctx, milestone); err != nil {
			return nil, err
		}
	}
	return milestones, nil
}

// SaveMilestone inserts or replaces a milestone and rewrites its task
// set.
func (s *Store) SaveMilestone(ctx context.Context, milestone *core.Milestone) error {
	if err := s.projectExists(ctx, milestone.ProjectID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO milestones
		(id, project_id, name, description, status, due_date, progress,
		 completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			due_date = excluded.due_date,
			progress = excluded.progress,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		milestone.ID, milestone.ProjectID, milestone.Name, milestone.Description,
		string(milestone.Status), encodeTime(milestone.DueDate), milestone.Progress,
		encodeTimePtr(milestone.CompletedAt), encodeTime(milestone.CreatedAt),
		encodeTime(milestone.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save milestone: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM milestone_tasks WHERE milestone_id = ?`, milestone.ID); err != nil {
		return err
	}
	for i, taskID := range milestone.TaskIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO milestone_tasks (milestone_id, task_id, position) VALUES (?, ?, ?)`,
			milestone.ID, taskID, i); err != nil {
			return fmt.Errorf("save milestone task: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteMilestone removes a milestone. Tasks are not affected.
func (s *Store) DeleteMilestone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM milestones WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrMilestoneNotFound
	}
	return nil
}

func (s *Store) milestoneExists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM milestones WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrMilestoneNotFound
	}
	return err
}

func (s *Store) loadMilestoneTasks(ctx context.Context, milestone *core.Milestone) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id FROM milestone_tasks WHERE milestone_id = ? ORDER BY position`,
		milestone.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	milestone.TaskIDs = nil
	for rows.Next() {
		var taskID string
		if err := rows.Scan(&taskID); err != nil {
			return err
		}
		milestone.TaskIDs = append(milestone.TaskIDs, taskID)
	}
	return rows.Err()
}

func scanMilestone(row rowScanner) (*core.Milestone, error) {
	var (
		milestone                  core.Milestone
		status                     string
		dueDateRaw                 string
		completedAt                sql.NullString
		createdAtRaw, updatedAtRaw string
	)
	err := row.Scan(&milestone.ID, &milestone.ProjectID, &milestone.Name,
		&milestone.Description, &status, &dueDateRaw, &milestone.Progress,
		&completedAt, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		return nil, err
	}

	milestone.Status = core.MilestoneStatus(status)
	if milestone.DueDate, err = decodeTime(dueDateRaw); err != nil {
		return nil, err
	}
	if milestone.CompletedAt, err = decodeTimePtr(completedAt); err != nil {
		return nil, err
	}
	if milestone.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
		return nil, err
	}
	if milestone.UpdatedAt, err = decodeTime(updatedAtRaw); err != nil {
		return nil, err
	}
	return &milestone, nil
}
