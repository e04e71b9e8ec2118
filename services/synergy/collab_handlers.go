// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synergy

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/synergyos/synergy/services/synergy/messages"
	"github.com/synergyos/synergy/services/synergy/templates"
	"github.com/synergyos/synergy/services/synergy/webhooks"
)

// notConfigured writes a 503 for an optional subsystem that was not
// wired at startup.
func notConfigured(c *gin.Context, name string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: name + " is not enabled on this server",
		Code:  "NOT_CONFIGURED",
	})
}

// =============================================================================
// Templates
// =============================================================================

// HandleCreateTemplate handles POST /v1/synergy/templates.
func (h *Handlers) HandleCreateTemplate(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleCreateTemplate")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.templates == nil {
		notConfigured(c, "templates")
		return
	}

	var tmpl templates.Template
	if err := c.ShouldBindJSON(&tmpl); err != nil {
		badRequest(c, logger, err)
		return
	}
	tmpl.CreatedBy = actor

	created, err := h.templates.Create(c.Request.Context(), &tmpl)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	logger.Info("Template created", "template_id", created.ID, "name", created.Name)
	c.JSON(http.StatusCreated, created)
}

// HandleListTemplates handles GET /v1/synergy/templates.
func (h *Handlers) HandleListTemplates(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListTemplates")
	if h.templates == nil {
		notConfigured(c, "templates")
		return
	}

	list, err := h.templates.List(c.Request.Context())
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": list, "count": len(list)})
}

// HandleGetTemplate handles GET /v1/synergy/templates/:id.
func (h *Handlers) HandleGetTemplate(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetTemplate")
	if h.templates == nil {
		notConfigured(c, "templates")
		return
	}

	tmpl, err := h.templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// HandleDeleteTemplate handles DELETE /v1/synergy/templates/:id.
func (h *Handlers) HandleDeleteTemplate(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteTemplate")
	if _, ok := actorID(c); !ok {
		return
	}
	if h.templates == nil {
		notConfigured(c, "templates")
		return
	}

	if err := h.templates.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleInstantiateTemplate handles POST /v1/synergy/templates/:id/instantiate.
func (h *Handlers) HandleInstantiateTemplate(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleInstantiateTemplate")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.templates == nil {
		notConfigured(c, "templates")
		return
	}

	var req InstantiateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	project, err := h.templates.Instantiate(c.Request.Context(), c.Param("id"), templates.InstantiateRequest{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     actor,
		StartDate:   req.StartDate,
	})
	if err != nil {
		respondError(c, logger, err)
		return
	}
	logger.Info("Project instantiated from template",
		"template_id", c.Param("id"), "project_id", project.ID)
	c.JSON(http.StatusCreated, project)
}

// =============================================================================
// Messages
// =============================================================================

// HandlePostMessage handles POST /v1/synergy/projects/:id/messages.
func (h *Handlers) HandlePostMessage(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandlePostMessage")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.messages == nil {
		notConfigured(c, "messages")
		return
	}

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	msg, err := h.messages.Post(c.Request.Context(), messages.PostRequest{
		ProjectID: c.Param("id"),
		AuthorID:  actor,
		Body:      req.Body,
		ParentID:  req.ParentID,
		Mentions:  req.Mentions,
	})
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// HandleListMessages handles GET /v1/synergy/projects/:id/messages.
func (h *Handlers) HandleListMessages(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListMessages")
	if _, ok := actorID(c); !ok {
		return
	}
	if h.messages == nil {
		notConfigured(c, "messages")
		return
	}

	list, err := h.messages.List(c.Request.Context(), c.Param("id"), limitQuery(c, 100))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list, "count": len(list)})
}

// HandleUnreadMessages handles GET /v1/synergy/projects/:id/messages/unread.
func (h *Handlers) HandleUnreadMessages(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleUnreadMessages")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.messages == nil {
		notConfigured(c, "messages")
		return
	}

	count, err := h.messages.UnreadCount(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": c.Param("id"), "unread": count})
}

// HandleEditMessage handles PUT /v1/synergy/messages/:id.
func (h *Handlers) HandleEditMessage(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleEditMessage")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.messages == nil {
		notConfigured(c, "messages")
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	msg, err := h.messages.Edit(c.Request.Context(), c.Param("id"), actor, req.Body)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// HandleDeleteMessage handles DELETE /v1/synergy/messages/:id.
func (h *Handlers) HandleDeleteMessage(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteMessage")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.messages == nil {
		notConfigured(c, "messages")
		return
	}

	if err := h.messages.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleMarkMessageRead handles POST /v1/synergy/messages/:id/read.
func (h *Handlers) HandleMarkMessageRead(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleMarkMessageRead")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.messages == nil {
		notConfigured(c, "messages")
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// Notifications
// =============================================================================

// HandleListNotifications handles GET /v1/synergy/notifications.
func (h *Handlers) HandleListNotifications(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListNotifications")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.notify == nil {
		notConfigured(c, "notifications")
		return
	}

	limit := limitQuery(c, 50)
	if strings.EqualFold(c.Query("unread"), "true") {
		list, unread, err := h.notify.Unread(c.Request.Context(), actor, limit)
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
		return
	}

	list, err := h.notify.List(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "count": len(list)})
}

// HandleMarkNotificationRead handles POST /v1/synergy/notifications/:id/read.
func (h *Handlers) HandleMarkNotificationRead(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleMarkNotificationRead")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.notify == nil {
		notConfigured(c, "notifications")
		return
	}

	if err := h.notify.MarkRead(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleMarkAllNotificationsRead handles POST /v1/synergy/notifications/read_all.
func (h *Handlers) HandleMarkAllNotificationsRead(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleMarkAllNotificationsRead")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.notify == nil {
		notConfigured(c, "notifications")
		return
	}

	n, err := h.notify.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked_read": n})
}

// =============================================================================
// Webhooks
// =============================================================================

// HandleRegisterWebhook handles POST /v1/synergy/webhooks.
func (h *Handlers) HandleRegisterWebhook(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleRegisterWebhook")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.webhooks == nil {
		notConfigured(c, "webhooks")
		return
	}

	var req RegisterWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}

	endpoint := &webhooks.Endpoint{
		OwnerID: actor,
		Name:    req.Name,
		URL:     req.URL,
		Secret:  req.Secret,
		Events:  req.Events,
	}
	if err := h.webhooks.Register(c.Request.Context(), endpoint); err != nil {
		respondError(c, logger, err)
		return
	}
	if req.Active != nil && !*req.Active {
		endpoint.Active = false
		if err := h.endpoints.SaveEndpoint(c.Request.Context(), endpoint); err != nil {
			respondError(c, logger, err)
			return
		}
	}
	logger.Info("Webhook registered", "endpoint_id", endpoint.ID, "url", endpoint.URL)
	c.JSON(http.StatusCreated, endpoint)
}

// HandleListWebhooks handles GET /v1/synergy/webhooks.
func (h *Handlers) HandleListWebhooks(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListWebhooks")
	if _, ok := actorID(c); !ok {
		return
	}
	if h.endpoints == nil {
		notConfigured(c, "webhooks")
		return
	}

	list, err := h.endpoints.ListEndpoints(c.Request.Context())
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": list, "count": len(list)})
}

// HandleGetWebhook handles GET /v1/synergy/webhooks/:id.
func (h *Handlers) HandleGetWebhook(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleGetWebhook")
	if _, ok := actorID(c); !ok {
		return
	}
	if h.endpoints == nil {
		notConfigured(c, "webhooks")
		return
	}

	endpoint, err := h.endpoints.GetEndpoint(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, endpoint)
}

// HandleDeleteWebhook handles DELETE /v1/synergy/webhooks/:id.
func (h *Handlers) HandleDeleteWebhook(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDeleteWebhook")
	if _, ok := actorID(c); !ok {
		return
	}
	if h.endpoints == nil {
		notConfigured(c, "webhooks")
		return
	}

	if err := h.endpoints.DeleteEndpoint(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleListDeliveries handles GET /v1/synergy/webhooks/:id/deliveries.
func (h *Handlers) HandleListDeliveries(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleListDeliveries")
	if _, ok := actorID(c); !ok {
		return
	}
	if h.delivs == nil {
		notConfigured(c, "webhooks")
		return
	}

	list, err := h.delivs.ListDeliveries(c.Request.Context(), c.Param("id"), limitQuery(c, 50))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": list, "count": len(list)})
}

// =============================================================================
// AI assistant
// =============================================================================

// HandleSuggestTasks handles POST /v1/synergy/projects/:id/ai/suggest.
func (h *Handlers) HandleSuggestTasks(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleSuggestTasks")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.ai == nil {
		notConfigured(c, "ai")
		return
	}
	if _, err := h.svc.GetProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}

	suggestions, err := h.ai.SuggestTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	h.countAIRequest(c)
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "model_backed": h.ai.Enabled()})
}

// HandleAnalyzeRisks handles POST /v1/synergy/projects/:id/ai/risks.
func (h *Handlers) HandleAnalyzeRisks(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleAnalyzeRisks")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.ai == nil {
		notConfigured(c, "ai")
		return
	}
	if _, err := h.svc.GetProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}

	analysis, err := h.ai.AnalyzeRisks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	h.countAIRequest(c)
	c.JSON(http.StatusOK, analysis)
}

// HandleParseTask handles POST /v1/synergy/projects/:id/ai/parse.
func (h *Handlers) HandleParseTask(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleParseTask")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.ai == nil {
		notConfigured(c, "ai")
		return
	}

	var req ParseTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}
	if _, err := h.svc.GetProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}

	parsed, err := h.ai.ParseTask(c.Request.Context(), c.Param("id"), req.Input)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	h.countAIRequest(c)
	c.JSON(http.StatusOK, parsed)
}

// HandleDescribeTask handles POST /v1/synergy/projects/:id/ai/describe.
func (h *Handlers) HandleDescribeTask(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleDescribeTask")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.ai == nil {
		notConfigured(c, "ai")
		return
	}

	var req DescribeTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, err)
		return
	}
	if _, err := h.svc.GetProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}

	description, err := h.ai.DescribeTask(c.Request.Context(), c.Param("id"), req.Title)
	if err != nil {
		respondError(c, logger, err)
		return
	}
	h.countAIRequest(c)
	c.JSON(http.StatusOK, gin.H{
		"description":  description,
		"model_backed": h.ai.Enabled(),
	})
}

// HandlePrioritizeTasks handles POST /v1/synergy/projects/:id/ai/prioritize.
func (h *Handlers) HandlePrioritizeTasks(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandlePrioritizeTasks")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.ai == nil {
		notConfigured(c, "ai")
		return
	}
	if _, err := h.svc.GetProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}

	tasks, reasoning, err := h.ai.PrioritizeTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	h.countAIRequest(c)
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "reasoning": reasoning})
}

// HandleSummarize handles POST /v1/synergy/projects/:id/ai/summary.
func (h *Handlers) HandleSummarize(c *gin.Context) {
	logger := slog.With("request_id", getOrCreateRequestID(c), "handler", "HandleSummarize")
	actor, ok := actorID(c)
	if !ok {
		return
	}
	if h.ai == nil {
		notConfigured(c, "ai")
		return
	}
	if _, err := h.svc.GetProject(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, logger, err)
		return
	}

	summary, err := h.ai.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, logger, err)
		return
	}
	h.countAIRequest(c)
	c.JSON(http.StatusOK, gin.H{"project_id": c.Param("id"), "summary": summary})
}

func (h *Handlers) countAIRequest(c *gin.Context) {
	if h.svc.metrics != nil {
		h.svc.metrics.AIRequests.Add(c.Request.Context(), 1)
	}
}
