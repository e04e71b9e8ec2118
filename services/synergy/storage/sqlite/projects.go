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

const projectColumns = `id, name, description, status, priority, owner_id, progress,
	start_date, end_date, budget, created_at, updated_at`

// GetProject returns the project with the given id, members included.
func (s *Store) GetProject(ctx context.Context, id string) (*core.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrProjectNotFound
		}
		return nil, err
	}
	if err := s.loadMembers(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]*core.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*core.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, project := range projects {
		if err := s.loadMembers(ctx, project); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// SaveProject inserts or replaces a project and rewrites its member
// set.
func (s *Store) SaveProject(ctx context.Context, project *core.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO projects
		(id, name, description, status, priority, owner_id, progress,
		 start_date, end_date, budget, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			priority = excluded.priority,
			owner_id = excluded.owner_id,
			progress = excluded.progress,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			budget = excluded.budget,
			updated_at = excluded.updated_at`,
		project.ID, project.Name, project.Description,
		string(project.Status), string(project.Priority), project.OwnerID,
		project.Progress, encodeTimePtr(project.StartDate),
		encodeTimePtr(project.EndDate), nullFloat(project.Budget),
		encodeTime(project.CreatedAt), encodeTime(project.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = ?`, project.ID); err != nil {
		return err
	}
	for _, userID := range project.MemberIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_members (project_id, user_id) VALUES (?, ?)`,
			project.ID, userID); err != nil {
			return fmt.Errorf("save project member: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteProject removes a project. Tasks, milestones, members, and
// their join rows cascade via the schema.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrProjectNotFound
	}
	return nil
}

func (s *Store) projectExists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM projects WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrProjectNotFound
	}
	return err
}

func (s *Store) loadMembers(ctx context.Context, project *core.Project) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM project_members WHERE project_id = ? ORDER BY user_id`,
		project.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	project.MemberIDs = nil
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return err
		}
		project.MemberIDs = append(project.MemberIDs, userID)
	}
	return rows.Err()
}

func scanProject(row rowScanner) (*core.Project, error) {
	var (
		project                    core.Project
		status, priority           string
		startDate, endDate         sql.NullString
		budget                     sql.NullFloat64
		createdAtRaw, updatedAtRaw string
	)
	err := row.Scan(&project.ID, &project.Name, &project.Description,
		&status, &priority, &project.OwnerID, &project.Progress,
		&startDate, &endDate, &budget, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		return nil, err
	}

	project.Status = core.ProjectStatus(status)
	project.Priority = core.Priority(priority)
	project.Budget = floatPtr(budget)

	if project.StartDate, err = decodeTimePtr(startDate); err != nil {
		return nil, err
	}
	if project.EndDate, err = decodeTimePtr(endDate); err != nil {
		return nil, err
	}
	if project.CreatedAt, err = decodeTime(createdAtRaw); err != nil {
		return nil, err
	}
	if project.UpdatedAt, err = decodeTime(updatedAtRaw); err != nil {
		return nil, err
	}
	return &project, nil
}
