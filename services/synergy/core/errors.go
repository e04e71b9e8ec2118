// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package core

import "errors"

// Sentinel errors for the core engine.
var (
	// ErrSelfDependency indicates a task was made to depend on itself.
	ErrSelfDependency = errors.New("task cannot depend on itself")

	// ErrCyclicDependency indicates the edge would create a dependency cycle.
	ErrCyclicDependency = errors.New("dependency would create a cycle")

	// ErrAlreadyRunning indicates the task already has an active timer.
	ErrAlreadyRunning = errors.New("timer already running for task")

	// ErrNoActiveTimer indicates stop was called with no running timer.
	ErrNoActiveTimer = errors.New("no active timer for task")

	// ErrInvalidImpact indicates an impact value outside [0, 100].
	ErrInvalidImpact = errors.New("impact must be between 0 and 100")

	// ErrInvalidHours indicates a manual time log with hours <= 0.
	ErrInvalidHours = errors.New("hours must be greater than zero")

	// ErrInvalidStatus indicates an unknown task status value.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrTaskNotFound indicates the referenced task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrProjectNotFound indicates the referenced project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrMilestoneNotFound indicates the referenced milestone does not exist.
	ErrMilestoneNotFound = errors.New("milestone not found")

	// ErrCommentNotFound indicates the referenced comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrAttachmentNotFound indicates the referenced attachment does not exist.
	ErrAttachmentNotFound = errors.New("attachment not found")
)
