// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package synergy

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all SynergyOS routes with the router.
//
// Description:
//
//	Registers the /v1/synergy/* endpoints with the given Gin router
//	group. Every endpoint except health identifies the acting user via
//	the X-User-ID header.
//
// Project Endpoints:
//
//	POST   /v1/synergy/projects - Create a project
//	GET    /v1/synergy/projects - List the actor's projects
//	GET    /v1/synergy/projects/:id - Get a project
//	PUT    /v1/synergy/projects/:id - Update a project
//	DELETE /v1/synergy/projects/:id - Delete a project (owner only)
//	POST   /v1/synergy/projects/:id/members - Add a member (owner only)
//	DELETE /v1/synergy/projects/:id/members/:userID - Remove a member
//	GET    /v1/synergy/projects/:id/stats - Dashboard summary
//	GET    /v1/synergy/projects/:id/activities - Audit trail
//	POST   /v1/synergy/projects/:id/recompute - Force progress recompute
//	GET    /v1/synergy/projects/:id/tasks - List tasks
//	GET    /v1/synergy/projects/:id/milestones - List milestones
//
// Task Endpoints:
//
//	POST   /v1/synergy/tasks - Create a task
//	GET    /v1/synergy/tasks/:id - Get a task with graph context
//	PUT    /v1/synergy/tasks/:id - Update a task
//	DELETE /v1/synergy/tasks/:id - Delete a task
//	POST   /v1/synergy/tasks/:id/dependencies - Add a dependency edge
//	DELETE /v1/synergy/tasks/:id/dependencies/:depID - Remove an edge
//	GET    /v1/synergy/tasks/:id/blocked_by - Start readiness + blockers
//	POST   /v1/synergy/tasks/:id/timer/start - Start the task timer
//	POST   /v1/synergy/tasks/:id/timer/stop - Stop the task timer
//	POST   /v1/synergy/tasks/:id/time_logs - Log time manually
//	GET    /v1/synergy/tasks/:id/time_logs - List the time ledger
//	POST   /v1/synergy/tasks/:id/comments - Add a comment
//	GET    /v1/synergy/tasks/:id/comments - List comments
//	POST   /v1/synergy/tasks/:id/attachments - Record an attachment
//	GET    /v1/synergy/tasks/:id/attachments - List attachments
//	DELETE /v1/synergy/tasks/:id/attachments/:attachmentID - Remove one
//	DELETE /v1/synergy/comments/:id - Delete a comment (author only)
//
// Milestone Endpoints:
//
//	POST   /v1/synergy/milestones - Create a milestone
//	GET    /v1/synergy/milestones/:id - Get a milestone
//	PUT    /v1/synergy/milestones/:id - Update a milestone
//	DELETE /v1/synergy/milestones/:id - Delete a milestone
//	POST   /v1/synergy/milestones/:id/refresh - Recompute its progress
//
// Collaboration Endpoints:
//
//	POST   /v1/synergy/templates - Create a project template
//	GET    /v1/synergy/templates - List templates
//	GET    /v1/synergy/templates/:id - Get a template
//	DELETE /v1/synergy/templates/:id - Delete a template
//	POST   /v1/synergy/templates/:id/instantiate - Create a project from it
//	POST   /v1/synergy/projects/:id/messages - Post to the message board
//	GET    /v1/synergy/projects/:id/messages - List board messages
//	GET    /v1/synergy/projects/:id/messages/unread - Unread count
//	GET    /v1/synergy/projects/:id/messages/ws - Websocket message feed
//	PUT    /v1/synergy/messages/:id - Edit a message (author only)
//	DELETE /v1/synergy/messages/:id - Delete a message (author only)
//	POST   /v1/synergy/messages/:id/read - Mark a message read
//	GET    /v1/synergy/notifications - List notifications
//	POST   /v1/synergy/notifications/:id/read - Mark one read
//	POST   /v1/synergy/notifications/read_all - Mark all read
//	POST   /v1/synergy/webhooks - Register a webhook endpoint
//	GET    /v1/synergy/webhooks - List webhook endpoints
//	GET    /v1/synergy/webhooks/:id - Get a webhook endpoint
//	DELETE /v1/synergy/webhooks/:id - Delete a webhook endpoint
//	GET    /v1/synergy/webhooks/:id/deliveries - Delivery history
//
// AI Endpoints:
//
//	POST   /v1/synergy/projects/:id/ai/suggest - Suggest next tasks
//	POST   /v1/synergy/projects/:id/ai/risks - Analyze project risks
//	POST   /v1/synergy/projects/:id/ai/parse - Parse prose into a task
//	POST   /v1/synergy/projects/:id/ai/describe - Draft a task description
//	POST   /v1/synergy/projects/:id/ai/prioritize - Order the backlog
//	POST   /v1/synergy/projects/:id/ai/summary - Summarize the project
//
// Health Endpoints:
//
//	GET    /v1/synergy/health - Health check
//	GET    /v1/synergy/ready - Readiness probe (checks storage)
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	synergy := rg.Group("/synergy")
	{
		projects := synergy.Group("/projects")
		{
			projects.POST("", h.HandleCreateProject)
			projects.GET("", h.HandleListProjects)
			projects.GET("/:id", h.HandleGetProject)
			projects.PUT("/:id", h.HandleUpdateProject)
			projects.DELETE("/:id", h.HandleDeleteProject)
			projects.POST("/:id/members", h.HandleAddMember)
			projects.DELETE("/:id/members/:userID", h.HandleRemoveMember)
			projects.GET("/:id/stats", h.HandleProjectStats)
			projects.GET("/:id/activities", h.HandleListActivities)
			projects.POST("/:id/recompute", h.HandleRecomputeProgress)
			projects.GET("/:id/tasks", h.HandleListProjectTasks)
			projects.GET("/:id/milestones", h.HandleListMilestones)

			projects.POST("/:id/messages", h.HandlePostMessage)
			projects.GET("/:id/messages", h.HandleListMessages)
			projects.GET("/:id/messages/unread", h.HandleUnreadMessages)

			projects.POST("/:id/ai/suggest", h.HandleSuggestTasks)
			projects.POST("/:id/ai/risks", h.HandleAnalyzeRisks)
			projects.POST("/:id/ai/parse", h.HandleParseTask)
			projects.POST("/:id/ai/describe", h.HandleDescribeTask)
			projects.POST("/:id/ai/prioritize", h.HandlePrioritizeTasks)
			projects.POST("/:id/ai/summary", h.HandleSummarize)

			if h.hub != nil {
				projects.GET("/:id/messages/ws", h.hub.ServeWS())
			}
		}

		tasks := synergy.Group("/tasks")
		{
			tasks.POST("", h.HandleCreateTask)
			tasks.GET("/:id", h.HandleGetTask)
			tasks.PUT("/:id", h.HandleUpdateTask)
			tasks.DELETE("/:id", h.HandleDeleteTask)
			tasks.POST("/:id/dependencies", h.HandleAddDependency)
			tasks.DELETE("/:id/dependencies/:depID", h.HandleRemoveDependency)
			tasks.GET("/:id/blocked_by", h.HandleBlockedBy)
			tasks.POST("/:id/timer/start", h.HandleStartTimer)
			tasks.POST("/:id/timer/stop", h.HandleStopTimer)
			tasks.POST("/:id/time_logs", h.HandleLogTime)
			tasks.GET("/:id/time_logs", h.HandleTimeLogs)
			tasks.POST("/:id/comments", h.HandleAddComment)
			tasks.GET("/:id/comments", h.HandleListComments)
			tasks.POST("/:id/attachments", h.HandleAddAttachment)
			tasks.GET("/:id/attachments", h.HandleListAttachments)
			tasks.DELETE("/:id/attachments/:attachmentID", h.HandleDeleteAttachment)
		}

		synergy.DELETE("/comments/:id", h.HandleDeleteComment)

		milestones := synergy.Group("/milestones")
		{
			milestones.POST("", h.HandleCreateMilestone)
			milestones.GET("/:id", h.HandleGetMilestone)
			milestones.PUT("/:id", h.HandleUpdateMilestone)
			milestones.DELETE("/:id", h.HandleDeleteMilestone)
			milestones.POST("/:id/refresh", h.HandleRefreshMilestone)
		}

		tmpls := synergy.Group("/templates")
		{
			tmpls.POST("", h.HandleCreateTemplate)
			tmpls.GET("", h.HandleListTemplates)
			tmpls.GET("/:id", h.HandleGetTemplate)
			tmpls.DELETE("/:id", h.HandleDeleteTemplate)
			tmpls.POST("/:id/instantiate", h.HandleInstantiateTemplate)
		}

		msgs := synergy.Group("/messages")
		{
			msgs.PUT("/:id", h.HandleEditMessage)
			msgs.DELETE("/:id", h.HandleDeleteMessage)
			msgs.POST("/:id/read", h.HandleMarkMessageRead)
		}

		notifications := synergy.Group("/notifications")
		{
			notifications.GET("", h.HandleListNotifications)
			notifications.POST("/:id/read", h.HandleMarkNotificationRead)
			notifications.POST("/read_all", h.HandleMarkAllNotificationsRead)
		}

		hooks := synergy.Group("/webhooks")
		{
			hooks.POST("", h.HandleRegisterWebhook)
			hooks.GET("", h.HandleListWebhooks)
			hooks.GET("/:id", h.HandleGetWebhook)
			hooks.DELETE("/:id", h.HandleDeleteWebhook)
			hooks.GET("/:id/deliveries", h.HandleListDeliveries)
		}

		synergy.GET("/health", h.HandleHealth)
		synergy.GET("/ready", h.HandleReady)
	}
}
