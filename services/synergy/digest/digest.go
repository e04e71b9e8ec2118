// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package digest runs the scheduled summary jobs: a daily digest of
// due and overdue work per user, and a weekly progress report per
// project. Both publish through the notification service.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/synergyos/synergy/services/synergy/core"
	"github.com/synergyos/synergy/services/synergy/notify"
)

// Default schedules.
const (
	// DailySchedule fires at 08:00 every day.
	DailySchedule = "0 8 * * *"

	// WeeklySchedule fires at 09:00 every Monday.
	WeeklySchedule = "0 9 * * 1"
)

// Service owns the cron scheduler and the digest jobs.
//
// Thread Safety: Start and Stop must not be called concurrently with
// each other; the scheduled jobs themselves are safe.
type Service struct {
	store  core.Store
	notify *notify.Service
	logger *slog.Logger
	now    func() time.Time

	daily  string
	weekly string
	cron   *rcron.Cron
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithSchedules overrides the cron expressions. For tests and
// deployments in other timezones.
func WithSchedules(daily, weekly string) Option {
	return func(s *Service) { s.daily = daily; s.weekly = weekly }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the digest service.
func NewService(store core.Store, notifier *notify.Service, opts ...Option) *Service {
	s := &Service{
		store:  store,
		notify: notifier,
		now:    time.Now,
		daily:  DailySchedule,
		weekly: WeeklySchedule,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start registers the jobs and starts the scheduler.
func (s *Service) Start() error {
	s.cron = rcron.New()
	if _, err := s.cron.AddFunc(s.daily, func() { s.runDaily(context.Background()) }); err != nil {
		return fmt.Errorf("register daily digest: %w", err)
	}
	if _, err := s.cron.AddFunc(s.weekly, func() { s.runWeekly(context.Background()) }); err != nil {
		return fmt.Errorf("register weekly report: %w", err)
	}
	s.cron.Start()
	s.logger.Info("digest scheduler started", "daily", s.daily, "weekly", s.weekly)
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// runDaily assembles and sends the per-user daily digest.
func (s *Service) runDaily(ctx context.Context) {
	if err := s.RunDaily(ctx); err != nil {
		s.logger.Error("daily digest failed", "error", err)
	}
}

func (s *Service) runWeekly(ctx context.Context) {
	if err := s.RunWeekly(ctx); err != nil {
		s.logger.Error("weekly report failed", "error", err)
	}
}

// RunDaily sends each user a digest of their tasks due within 24 hours
// or overdue. Exported so an operator can trigger it on demand.
func (s *Service) RunDaily(ctx context.Context) error {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return err
	}

	type bucket struct {
		due     []string
		overdue []string
	}
	byUser := map[string]*bucket{}
	now := s.now()
	horizon := now.Add(24 * time.Hour)

	for _, project := range projects {
		tasks, err := s.store.ListTasks(ctx, project.ID)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if task.AssigneeID == "" || task.Status == core.StatusDone || task.DueDate == nil {
				continue
			}
			b := byUser[task.AssigneeID]
			if b == nil {
				b = &bucket{}
				byUser[task.AssigneeID] = b
			}
			switch {
			case task.DueDate.Before(now):
				b.overdue = append(b.overdue, task.Title)
			case task.DueDate.Before(horizon):
				b.due = append(b.due, task.Title)
			}
		}
	}

	for userID, b := range byUser {
		if len(b.due) == 0 && len(b.overdue) == 0 {
			continue
		}
		var lines []string
		if len(b.overdue) > 0 {
			lines = append(lines, fmt.Sprintf("Overdue: %s", strings.Join(b.overdue, ", ")))
		}
		if len(b.due) > 0 {
			lines = append(lines, fmt.Sprintf("Due today: %s", strings.Join(b.due, ", ")))
		}
		err := s.notify.Notify(ctx, &notify.Notification{
			UserID: userID,
			Type:   notify.TypeDigest,
			Title:  fmt.Sprintf("Daily digest: %d overdue, %d due", len(b.overdue), len(b.due)),
			Body:   strings.Join(lines, "\n"),
		})
		if err != nil {
			s.logger.Error("daily digest: notify", "user_id", userID, "error", err)
		}
	}
	return nil
}

// RunWeekly sends each project owner a progress summary. Exported so
// an operator can trigger it on demand.
func (s *Service) RunWeekly(ctx context.Context) error {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return err
	}

	for _, project := range projects {
		if project.OwnerID == "" {
			continue
		}
		if project.Status == core.ProjectCompleted || project.Status == core.ProjectCancelled {
			continue
		}
		tasks, err := s.store.ListTasks(ctx, project.ID)
		if err != nil {
			return err
		}
		completed := 0
		for _, task := range tasks {
			if task.Status == core.StatusDone {
				completed++
			}
		}
		err = s.notify.Notify(ctx, &notify.Notification{
			UserID: project.OwnerID,
			Type:   notify.TypeDigest,
			Title:  fmt.Sprintf("Weekly report: %s at %d%%", project.Name, project.Progress),
			Body: fmt.Sprintf("%d of %d tasks completed.",
				completed, len(tasks)),
			ResourceType: "project",
			ResourceID:   project.ID,
		})
		if err != nil {
			s.logger.Error("weekly report: notify", "project_id", project.ID, "error", err)
		}
	}
	return nil
}
