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

	"github.com/synergyos/synergy/services/synergy/templates"
)

// Templates are stored as a searchable header row (name, category)
// plus the full blueprint as a JSON spec column. Blueprints are only
// ever read whole, so there is nothing to join.

// SaveTemplate inserts or updates a template.
func (s *Store) SaveTemplate(ctx context.Context, t *templates.Template) error {
	spec, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("sqlite: encode template spec: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, description, category, spec, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			spec = excluded.spec,
			updated_at = excluded.updated_at`,
		t.ID, t.Name, t.Description, t.Category, string(spec),
		encodeTime(t.CreatedAt), encodeTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: save template: %w", err)
	}
	return nil
}

// GetTemplate returns one template by ID.
func (s *Store) GetTemplate(ctx context.Context, id string) (*templates.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT spec FROM templates WHERE id = ?`, id)
	var spec string
	if err := row.Scan(&spec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, templates.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("sqlite: get template: %w", err)
	}
	return decodeTemplate(spec)
}

// ListTemplates returns all templates, newest first.
func (s *Store) ListTemplates(ctx context.Context) ([]*templates.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT spec FROM templates ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list templates: %w", err)
	}
	defer rows.Close()

	var out []*templates.Template
	for rows.Next() {
		var spec string
		if err := rows.Scan(&spec); err != nil {
			return nil, fmt.Errorf("sqlite: scan template: %w", err)
		}
		t, err := decodeTemplate(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTemplate removes a template.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return templates.ErrTemplateNotFound
	}
	return nil
}

func decodeTemplate(spec string) (*templates.Template, error) {
	var t templates.Template
	if err := json.Unmarshal([]byte(spec), &t); err != nil {
		return nil, fmt.Errorf("sqlite: decode template spec: %w", err)
	}
	return &t, nil
}
