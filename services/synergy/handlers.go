// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synergy

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/synergyos/synergy/services/synergy/ai"
	"github.com/synergyos/synergy/services/synergy/core"
	"github.com/synergyos/synergy/services/synergy/messages"
	"github.com/synergyos/synergy/services/synergy/notify"
	"github.com/synergyos/synergy/services/synergy/templates"
	"github.com/synergyos/synergy/services/synergy/webhooks"
)

// Handlers contains the HTTP handlers for the SynergyOS API.
type Handlers struct {
	svc       *Service
	templates *templates.Service
	messages  *messages.Service
	hub       *messages.Hub
	notify    *notify.Service
	ai        *ai.Service
	webhooks  *webhooks.Dispatcher
	endpoints webhooks.EndpointStore
	delivs    webhooks.DeliveryStore
}

// NewHandlers creates handlers for the given service. Optional
// subsystems are attached with the With* methods.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// WithTemplates enables the project template endpoints.
func (h *Handlers) WithTemplates(svc *templates.Service) *Handlers {
	h.templates = svc
	return h
}

// WithMessages enables the message board and its websocket feed.
func (h *Handlers) WithMessages(svc *messages.Service, hub *messages.Hub) *Handlers {
	h.messages = svc
	h.hub = hub
	return h
}

// WithNotify enables the notification endpoints.
func (h *Handlers) WithNotify(svc *notify.Service) *Handlers {
	h.notify = svc
	return h
}

// WithAI enables the assistant endpoints.
func (h *Handlers) WithAI(svc *ai.Service) *Handlers {
	h.ai = svc
	return h
}

// WithWebhooks enables webhook registration and delivery history.
func (h *Handlers) WithWebhooks(dispatcher *webhooks.Dispatcher, endpoints webhooks.EndpointStore, deliveries webhooks.DeliveryStore) *Handlers {
	h.webhooks = dispatcher
	h.endpoints = endpoints
	h.delivs = deliveries
	return h
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// actorID extracts the acting user from the X-User-ID header. When
// missing, a 401 has already been written and ok is false.
func actorID(c *gin.Context) (string, bool) {
	id := c.GetHeader("X-User-ID")
	if id == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "X-User-ID header is required",
			Code:  "MISSING_USER",
		})
		return "", false
	}
	return id, true
}

// respondError maps a service error to an HTTP status and error code.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"

	switch {
	case errors.Is(err, core.ErrProjectNotFound):
		status, code = http.StatusNotFound, "PROJECT_NOT_FOUND"
	case errors.Is(err, core.ErrTaskNotFound):
		status, code = http.StatusNotFound, "TASK_NOT_FOUND"
	case errors.Is(err, core.ErrMilestoneNotFound):
		status, code = http.StatusNotFound, "MILESTONE_NOT_FOUND"
	case errors.Is(err, core.ErrCommentNotFound):
		status, code = http.StatusNotFound, "COMMENT_NOT_FOUND"
	case errors.Is(err, core.ErrAttachmentNotFound):
		status, code = http.StatusNotFound, "ATTACHMENT_NOT_FOUND"
	case errors.Is(err, templates.ErrTemplateNotFound):
		status, code = http.StatusNotFound, "TEMPLATE_NOT_FOUND"
	case errors.Is(err, messages.ErrMessageNotFound):
		status, code = http.StatusNotFound, "MESSAGE_NOT_FOUND"
	case errors.Is(err, webhooks.ErrEndpointNotFound):
		status, code = http.StatusNotFound, "WEBHOOK_NOT_FOUND"
	case errors.Is(err, core.ErrSelfDependency):
		status, code = http.StatusBadRequest, "SELF_DEPENDENCY"
	case errors.Is(err, core.ErrCyclicDependency):
		status, code = http.StatusBadRequest, "CYCLIC_DEPENDENCY"
	case errors.Is(err, core.ErrInvalidImpact):
		status, code = http.StatusBadRequest, "INVALID_IMPACT"
	case errors.Is(err, core.ErrInvalidHours):
		status, code = http.StatusBadRequest, "INVALID_HOURS"
	case errors.Is(err, core.ErrInvalidStatus):
		status, code = http.StatusBadRequest, "INVALID_STATUS"
	case errors.Is(err, messages.ErrEmptyBody):
		status, code = http.StatusBadRequest, "EMPTY_BODY"
	case errors.Is(err, core.ErrAlreadyRunning):
		status, code = http.StatusConflict, "TIMER_ALREADY_RUNNING"
	case errors.Is(err, core.ErrNoActiveTimer):
		status, code = http.StatusConflict, "NO_ACTIVE_TIMER"
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotCommentAuthor),
		errors.Is(err, messages.ErrNotMember),
		errors.Is(err, messages.ErrNotAuthor):
		status, code = http.StatusForbidden, "FORBIDDEN"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request rejected", "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, logger *slog.Logger, err error) {
	logger.Warn("Invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "Invalid request body: " + err.Error(),
		Code:  "INVALID_REQUEST",
	})
}

// limitQuery parses the ?limit= query parameter with a default.
func limitQuery(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// =============================================================================
// Projects
// =============================================================================

// HandleCreateProject handles POST /v1/synergy/projects.
func (h *Handlers) HandleCreateProject(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleCreateProject")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	project, err := h.svc.CreateProject(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	logger.Info("Project created", "project_id", project.ID, "owner", actor)
	c.JSON(http.StatusCreated, project)
}

// HandleListProjects handles GET /v1/synergy/projects.
func (h *Handlers) HandleListProjects(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListProjects")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	projects, err := h.svc.ListProjects(c.Request.Context(), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

// HandleGetProject handles GET /v1/synergy/projects/:id.
func (h *Handlers) HandleGetProject(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetProject")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	project, err := h.svc.GetProject(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// HandleUpdateProject handles PUT /v1/synergy/projects/:id.
func (h *Handlers) HandleUpdateProject(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleUpdateProject")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	project, err := h.svc.UpdateProject(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// HandleDeleteProject handles DELETE /v1/synergy/projects/:id.
func (h *Handlers) HandleDeleteProject(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteProject")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	logger.Info("Project deleted", "project_id", c.Param("id"), "actor", actor)
	c.Status(http.StatusNoContent)
}

// HandleAddMember handles POST /v1/synergy/projects/:id/members.
func (h *Handlers) HandleAddMember(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleAddMember")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	project, err := h.svc.AddMember(c.Request.Context(), c.Param("id"), req.UserID, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// HandleRemoveMember handles DELETE /v1/synergy/projects/:id/members/:userID.
func (h *Handlers) HandleRemoveMember(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleRemoveMember")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	project, err := h.svc.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("userID"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// HandleProjectStats handles GET /v1/synergy/projects/:id/stats.
func (h *Handlers) HandleProjectStats(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleProjectStats")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	stats, err := h.svc.ProjectStats(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandleListActivities handles GET /v1/synergy/projects/:id/activities.
func (h *Handlers) HandleListActivities(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListActivities")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	activities, err := h.svc.ListActivities(c.Request.Context(), c.Param("id"), actor, limitQuery(c, 50))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": activities, "count": len(activities)})
}

// HandleRecomputeProgress handles POST /v1/synergy/projects/:id/recompute.
func (h *Handlers) HandleRecomputeProgress(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleRecomputeProgress")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	projectID := c.Param("id")
	if _, err := h.svc.GetProject(c.Request.Context(), projectID, actor); err != nil {
		respondError(c, logger, err)
		return
	}
	progress, err := h.svc.engine.RecomputeProjectProgress(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": projectID, "progress": progress})
}

// =============================================================================
// Tasks
// =============================================================================

// HandleCreateTask handles POST /v1/synergy/tasks.
func (h *Handlers) HandleCreateTask(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleCreateTask")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	task, err := h.svc.CreateTask(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	logger.Info("Task created", "task_id", task.ID, "project_id", task.ProjectID)
	c.JSON(http.StatusCreated, task)
}

// HandleListProjectTasks handles GET /v1/synergy/projects/:id/tasks.
func (h *Handlers) HandleListProjectTasks(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListProjectTasks")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	tasks, err := h.svc.ListTasks(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

// HandleGetTask handles GET /v1/synergy/tasks/:id.
func (h *Handlers) HandleGetTask(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetTask")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	detail, err := h.svc.GetTask(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// HandleBlockedBy handles GET /v1/synergy/tasks/:id/blocked_by.
//
// A trimmed view of GetTask for schedulers that only care about whether
// the task can start and what is holding it up.
func (h *Handlers) HandleBlockedBy(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleBlockedBy")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	detail, err := h.svc.GetTask(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id":    detail.Task.ID,
		"can_start":  detail.CanStart,
		"blocked_by": detail.BlockedBy,
	})
}

// HandleUpdateTask handles PUT /v1/synergy/tasks/:id.
func (h *Handlers) HandleUpdateTask(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleUpdateTask")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	task, err := h.svc.UpdateTask(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// HandleDeleteTask handles DELETE /v1/synergy/tasks/:id.
func (h *Handlers) HandleDeleteTask(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteTask")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteTask(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAddDependency handles POST /v1/synergy/tasks/:id/dependencies.
func (h *Handlers) HandleAddDependency(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleAddDependency")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req DependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	if err := h.svc.AddDependency(c.Request.Context(), c.Param("id"), req.DependencyID, actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": c.Param("id"), "dependency_id": req.DependencyID})
}

// HandleRemoveDependency handles DELETE /v1/synergy/tasks/:id/dependencies/:depID.
func (h *Handlers) HandleRemoveDependency(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleRemoveDependency")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveDependency(c.Request.Context(), c.Param("id"), c.Param("depID"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleStartTimer handles POST /v1/synergy/tasks/:id/timer/start.
func (h *Handlers) HandleStartTimer(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleStartTimer")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	timer, err := h.svc.StartTimer(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, timer)
}

// HandleStopTimer handles POST /v1/synergy/tasks/:id/timer/stop.
func (h *Handlers) HandleStopTimer(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleStopTimer")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	// Body is optional: an empty note is fine.
	var req StopTimerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, logger, err)
			return
		}
	}

	entry, err := h.svc.StopTimer(c.Request.Context(), c.Param("id"), req.Note, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// HandleLogTime handles POST /v1/synergy/tasks/:id/time_logs.
func (h *Handlers) HandleLogTime(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleLogTime")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req LogTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	entry, err := h.svc.LogTime(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// HandleTimeLogs handles GET /v1/synergy/tasks/:id/time_logs.
func (h *Handlers) HandleTimeLogs(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleTimeLogs")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	logs, err := h.svc.TimeLogs(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// HandleAddComment handles POST /v1/synergy/tasks/:id/comments.
func (h *Handlers) HandleAddComment(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleAddComment")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), c.Param("id"), req.Body, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// HandleListComments handles GET /v1/synergy/tasks/:id/comments.
func (h *Handlers) HandleListComments(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListComments")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	comments, err := h.svc.ListComments(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// HandleDeleteComment handles DELETE /v1/synergy/comments/:id.
func (h *Handlers) HandleDeleteComment(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteComment")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteComment(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAddAttachment handles POST /v1/synergy/tasks/:id/attachments.
func (h *Handlers) HandleAddAttachment(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleAddAttachment")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req AttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	attachment, err := h.svc.AddAttachment(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

// HandleListAttachments handles GET /v1/synergy/tasks/:id/attachments.
func (h *Handlers) HandleListAttachments(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListAttachments")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	attachments, err := h.svc.ListAttachments(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": attachments, "count": len(attachments)})
}

// HandleDeleteAttachment handles DELETE /v1/synergy/tasks/:id/attachments/:attachmentID.
func (h *Handlers) HandleDeleteAttachment(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteAttachment")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteAttachment(c.Request.Context(), c.Param("id"), c.Param("attachmentID"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Milestones
// =============================================================================

// HandleCreateMilestone handles POST /v1/synergy/milestones.
func (h *Handlers) HandleCreateMilestone(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleCreateMilestone")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	milestone, err := h.svc.CreateMilestone(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, milestone)
}

// HandleListMilestones handles GET /v1/synergy/projects/:id/milestones.
func (h *Handlers) HandleListMilestones(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListMilestones")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	milestones, err := h.svc.ListMilestones(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": milestones, "count": len(milestones)})
}

// HandleGetMilestone handles GET /v1/synergy/milestones/:id.
func (h *Handlers) HandleGetMilestone(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetMilestone")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	milestone, err := h.svc.GetMilestone(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// HandleUpdateMilestone handles PUT /v1/synergy/milestones/:id.
func (h *Handlers) HandleUpdateMilestone(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleUpdateMilestone")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	milestone, err := h.svc.UpdateMilestone(c.Request.Context(), c.Param("id"), req, actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// HandleDeleteMilestone handles DELETE /v1/synergy/milestones/:id.
func (h *Handlers) HandleDeleteMilestone(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteMilestone")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteMilestone(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleRefreshMilestone handles POST /v1/synergy/milestones/:id/refresh.
func (h *Handlers) HandleRefreshMilestone(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleRefreshMilestone")
	actor, ok := actorID(c)
	if !ok {
		return
	}

	milestone, err := h.svc.RefreshMilestone(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// HandleHealth handles GET /v1/synergy/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: ServiceVersion})
}

// HandleReady handles GET /v1/synergy/ready. Probes the store with a
// cheap read so load balancers stop routing when storage is gone.
func (h *Handlers) HandleReady(c *gin.Context) {
	if _, err := h.svc.store.ListProjects(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "storage unavailable", Code: "NOT_READY"})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Version: ServiceVersion})
}
