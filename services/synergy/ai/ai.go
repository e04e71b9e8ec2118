// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ai provides model-assisted project features: task
// suggestions, risk analysis, natural-language task parsing,
// prioritization, and summaries.
//
// Every operation degrades to a deterministic heuristic when no model
// client is configured or when a model call fails, so the endpoints
// behind this package never depend on an upstream LLM being reachable.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/synergyos/synergy/services/synergy/core"
)

// LLM is the minimal completion surface the service needs.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TaskSuggestion is one proposed task for a project.
type TaskSuggestion struct {
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Priority       core.Priority `json:"priority"`
	EstimatedHours int           `json:"estimated_hours"`
}

// RiskAnalysis scores a project's delivery risk.
type RiskAnalysis struct {
	RiskScore       int      `json:"risk_score"`
	RiskLevel       string   `json:"risk_level"`
	KeyRisks        []string `json:"key_risks"`
	Recommendations []string `json:"recommendations"`
	AreasOfConcern  []string `json:"areas_of_concern"`
}

// ParsedTask is the structured form of a natural-language task request.
type ParsedTask struct {
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Priority          core.Priority `json:"priority"`
	EstimatedHours    int           `json:"estimated_hours"`
	Tags              []string      `json:"tags"`
	DueDateSuggestion string        `json:"due_date_suggestion,omitempty"`
}

// Service answers AI feature requests against the task store.
type Service struct {
	store  core.Store
	llm    LLM
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLLM sets the model client. Without one every operation uses its
// heuristic fallback.
func WithLLM(llm LLM) Option {
	return func(s *Service) { s.llm = llm }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds an AI service over the given store.
func NewService(store core.Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Enabled reports whether a model client is configured.
func (s *Service) Enabled() bool { return s.llm != nil }

// SuggestTasks proposes up to ten new tasks for the project.
//
// Description: Builds a prompt from the project record and its existing
// task count, asks the model for a JSON array of suggestions, and
// validates each entry (title required, priority clamped to a known
// level, hours defaulted). Falls back to a fixed starter set when the
// model is unavailable or returns garbage.
// Inputs: ctx - request context. projectID - project to suggest for.
// Outputs: []TaskSuggestion - validated suggestions, never nil on
// success. error - core.ErrProjectNotFound or a store failure.
func (s *Service) SuggestTasks(ctx context.Context, projectID string) ([]TaskSuggestion, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if s.llm == nil {
		return fallbackSuggestions(project), nil
	}

	prompt := suggestionPrompt(project, len(tasks))
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai: task suggestions, falling back", "project_id", projectID, "error", err)
		return fallbackSuggestions(project), nil
	}
	suggestions, err := parseSuggestions(raw)
	if err != nil {
		s.logger.Warn("ai: unparseable suggestion response, falling back", "project_id", projectID, "error", err)
		return fallbackSuggestions(project), nil
	}
	return suggestions, nil
}

// AnalyzeRisks scores the project's delivery risk.
//
// The fallback scores from task state alone: a base of 30, plus 10 per
// overdue task, plus 20 when under 30% of tasks are done, capped at
// 100. Levels: >70 high, >40 medium, else low.
func (s *Service) AnalyzeRisks(ctx context.Context, projectID string) (*RiskAnalysis, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if s.llm == nil {
		return fallbackRiskAnalysis(tasks, now), nil
	}

	prompt := riskPrompt(project, tasks, now)
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai: risk analysis, falling back", "project_id", projectID, "error", err)
		return fallbackRiskAnalysis(tasks, now), nil
	}
	analysis, err := parseRiskAnalysis(raw)
	if err != nil {
		s.logger.Warn("ai: unparseable risk response, falling back", "project_id", projectID, "error", err)
		return fallbackRiskAnalysis(tasks, now), nil
	}
	return analysis, nil
}

// ParseTask converts a natural-language request into a structured task.
//
// The fallback uses the input itself: truncated to 100 runes as the
// title, verbatim as the description, medium priority.
func (s *Service) ParseTask(ctx context.Context, projectID, input string) (*ParsedTask, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if s.llm == nil {
		return fallbackParsedTask(input), nil
	}

	prompt := parsePrompt(project, input)
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai: task parse, falling back", "project_id", projectID, "error", err)
		return fallbackParsedTask(input), nil
	}
	parsed, err := parseParsedTask(raw)
	if err != nil {
		s.logger.Warn("ai: unparseable parse response, falling back", "project_id", projectID, "error", err)
		return fallbackParsedTask(input), nil
	}
	return parsed, nil
}

// DescribeTask drafts a task description from a short title.
//
// The fallback is a deterministic template built from the title and the
// project name, so the endpoint always returns usable text.
func (s *Service) DescribeTask(ctx context.Context, projectID, title string) (string, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}

	if s.llm == nil {
		return fallbackDescription(project, title), nil
	}

	raw, err := s.llm.Complete(ctx, descriptionPrompt(project, title))
	if err != nil {
		s.logger.Warn("ai: task description, falling back", "project_id", projectID, "error", err)
		return fallbackDescription(project, title), nil
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return fallbackDescription(project, title), nil
	}
	return truncate(text, 2000), nil
}

// PrioritizeTasks returns the project's open tasks in suggested work
// order, with a one-line reasoning string.
//
// The fallback sorts by a fixed score: overdue tasks first, then
// in-progress, then by priority level. Done tasks are excluded.
func (s *Service) PrioritizeTasks(ctx context.Context, projectID string) ([]*core.Task, string, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, "", err
	}
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	now := s.now()

	open := make([]*core.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status != core.StatusDone {
			open = append(open, task)
		}
	}
	if s.llm == nil || len(open) == 0 {
		return fallbackPrioritization(open, now), fallbackReasoning, nil
	}

	prompt := prioritizationPrompt(open, now)
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("ai: prioritization, falling back", "project_id", projectID, "error", err)
		return fallbackPrioritization(open, now), fallbackReasoning, nil
	}
	indices, reasoning, err := parsePrioritization(raw)
	if err != nil {
		s.logger.Warn("ai: unparseable prioritization response, falling back", "project_id", projectID, "error", err)
		return fallbackPrioritization(open, now), fallbackReasoning, nil
	}

	ordered := make([]*core.Task, 0, len(open))
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(open) && !seen[idx] {
			ordered = append(ordered, open[idx])
			seen[idx] = true
		}
	}
	for i, task := range open {
		if !seen[i] {
			ordered = append(ordered, task)
		}
	}
	return ordered, reasoning, nil
}

// Summarize produces a short prose summary of the project.
func (s *Service) Summarize(ctx context.Context, projectID string) (string, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return "", err
	}

	if s.llm == nil {
		return fallbackSummary(project, tasks), nil
	}

	raw, err := s.llm.Complete(ctx, summaryPrompt(project, tasks))
	if err != nil {
		s.logger.Warn("ai: summary, falling back", "project_id", projectID, "error", err)
		return fallbackSummary(project, tasks), nil
	}
	return raw, nil
}

const fallbackReasoning = "Ordered by overdue status, in-progress work, then priority."

func overdue(task *core.Task, now time.Time) bool {
	return task.DueDate != nil && task.DueDate.Before(now) && task.Status != core.StatusDone
}

func fallbackSuggestions(project *core.Project) []TaskSuggestion {
	return []TaskSuggestion{
		{
			Title:          fmt.Sprintf("Review %s requirements", project.Name),
			Description:    "Analyze and document project requirements and scope.",
			Priority:       core.PriorityHigh,
			EstimatedHours: 4,
		},
		{
			Title:          "Create project documentation",
			Description:    "Set up documentation structure and initial pages.",
			Priority:       core.PriorityMedium,
			EstimatedHours: 3,
		},
		{
			Title:          "Set up development environment",
			Description:    "Configure tools, dependencies, and development workflow.",
			Priority:       core.PriorityHigh,
			EstimatedHours: 2,
		},
	}
}

func fallbackRiskAnalysis(tasks []*core.Task, now time.Time) *RiskAnalysis {
	total := len(tasks)
	completed := 0
	overdueCount := 0
	for _, task := range tasks {
		if task.Status == core.StatusDone {
			completed++
		}
		if overdue(task, now) {
			overdueCount++
		}
	}

	score := 30
	score += overdueCount * 10
	if total > 0 && float64(completed)/float64(total) < 0.3 {
		score += 20
	}
	if score > 100 {
		score = 100
	}

	level := "low"
	switch {
	case score > 70:
		level = "high"
	case score > 40:
		level = "medium"
	}

	return &RiskAnalysis{
		RiskScore:       score,
		RiskLevel:       level,
		KeyRisks:        []string{"Task completion rate needs attention", "Monitor project timeline"},
		Recommendations: []string{"Focus on high-priority tasks", "Review and update task deadlines"},
		AreasOfConcern:  []string{"Task progress tracking"},
	}
}

func fallbackDescription(project *core.Project, title string) string {
	return fmt.Sprintf(
		"%s\n\nPart of the %q project. Define the acceptance criteria, complete the work, and have a teammate review the result before marking it done.",
		title, project.Name)
}

func fallbackParsedTask(input string) *ParsedTask {
	title := input
	if runes := []rune(input); len(runes) > 100 {
		title = string(runes[:97]) + "..."
	}
	return &ParsedTask{
		Title:          title,
		Description:    input,
		Priority:       core.PriorityMedium,
		EstimatedHours: 2,
	}
}

var priorityRank = map[core.Priority]int{
	core.PriorityUrgent: 4,
	core.PriorityHigh:   3,
	core.PriorityMedium: 2,
	core.PriorityLow:    1,
}

func fallbackPrioritization(tasks []*core.Task, now time.Time) []*core.Task {
	score := func(task *core.Task) int {
		n := priorityRank[task.Priority] * 10
		if overdue(task, now) {
			n += 1000
		}
		if task.Status == core.StatusInProgress {
			n += 100
		}
		return n
	}
	ordered := append([]*core.Task(nil), tasks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return score(ordered[i]) > score(ordered[j])
	})
	return ordered
}

func fallbackSummary(project *core.Project, tasks []*core.Task) string {
	completed := 0
	for _, task := range tasks {
		if task.Status == core.StatusDone {
			completed++
		}
	}
	return fmt.Sprintf("%s is currently %s with %d of %d tasks completed. The team is making progress on key deliverables.",
		project.Name, project.Status, completed, len(tasks))
}
