// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/synergyos/synergy/services/synergy/core"
)

// extractJSON pulls a JSON document out of a model response. Models
// routinely wrap JSON in markdown fences or surround it with prose, so
// this strips fences first and then falls back to the outermost
// brace/bracket pair.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimPrefix(text, "json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	if json.Valid([]byte(text)) {
		return text, nil
	}

	// Prefer the candidate that starts earliest so an array containing
	// objects wins over its first element.
	best := ""
	bestStart := len(text)
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start >= 0 && end > start && start < bestStart {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				best = candidate
				bestStart = start
			}
		}
	}
	if best != "" {
		return best, nil
	}

	return "", fmt.Errorf("no JSON document in response: %.80s", text)
}

func clampPriority(p string) core.Priority {
	if pr := core.Priority(p); pr.Valid() {
		return pr
	}
	return core.PriorityMedium
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func capStrings(in []string, max int) []string {
	if len(in) > max {
		return in[:max]
	}
	return in
}

func parseSuggestions(raw string) ([]TaskSuggestion, error) {
	doc, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var decoded []struct {
		Title          string  `json:"title"`
		Description    string  `json:"description"`
		Priority       string  `json:"priority"`
		EstimatedHours float64 `json:"estimated_hours"`
	}
	if err := json.Unmarshal([]byte(doc), &decoded); err != nil {
		return nil, err
	}

	suggestions := make([]TaskSuggestion, 0, len(decoded))
	for _, d := range decoded {
		if d.Title == "" {
			continue
		}
		hours := int(d.EstimatedHours)
		if hours <= 0 {
			hours = 4
		}
		suggestions = append(suggestions, TaskSuggestion{
			Title:          truncate(d.Title, 100),
			Description:    truncate(d.Description, 500),
			Priority:       clampPriority(d.Priority),
			EstimatedHours: hours,
		})
		if len(suggestions) == 10 {
			break
		}
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("no usable suggestions in response")
	}
	return suggestions, nil
}

func parseRiskAnalysis(raw string) (*RiskAnalysis, error) {
	doc, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		RiskScore       int      `json:"risk_score"`
		RiskLevel       string   `json:"risk_level"`
		KeyRisks        []string `json:"key_risks"`
		Recommendations []string `json:"recommendations"`
		AreasOfConcern  []string `json:"areas_of_concern"`
	}
	if err := json.Unmarshal([]byte(doc), &decoded); err != nil {
		return nil, err
	}

	level := decoded.RiskLevel
	switch level {
	case "low", "medium", "high", "critical":
	default:
		level = "medium"
	}
	return &RiskAnalysis{
		RiskScore:       clampScore(decoded.RiskScore),
		RiskLevel:       level,
		KeyRisks:        capStrings(decoded.KeyRisks, 5),
		Recommendations: capStrings(decoded.Recommendations, 5),
		AreasOfConcern:  capStrings(decoded.AreasOfConcern, 5),
	}, nil
}

func parseParsedTask(raw string) (*ParsedTask, error) {
	doc, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var decoded struct {
		Title             string   `json:"title"`
		Description       string   `json:"description"`
		Priority          string   `json:"priority"`
		EstimatedHours    float64  `json:"estimated_hours"`
		Tags              []string `json:"tags"`
		DueDateSuggestion string   `json:"due_date_suggestion"`
	}
	if err := json.Unmarshal([]byte(doc), &decoded); err != nil {
		return nil, err
	}
	if decoded.Title == "" {
		decoded.Title = "New Task"
	}
	hours := int(decoded.EstimatedHours)
	if hours <= 0 {
		hours = 2
	}
	return &ParsedTask{
		Title:             truncate(decoded.Title, 100),
		Description:       truncate(decoded.Description, 500),
		Priority:          clampPriority(decoded.Priority),
		EstimatedHours:    hours,
		Tags:              capStrings(decoded.Tags, 5),
		DueDateSuggestion: decoded.DueDateSuggestion,
	}, nil
}

func parsePrioritization(raw string) ([]int, string, error) {
	doc, err := extractJSON(raw)
	if err != nil {
		return nil, "", err
	}
	var decoded struct {
		PrioritizedIndices []int  `json:"prioritized_indices"`
		Reasoning          string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(doc), &decoded); err != nil {
		return nil, "", err
	}
	if len(decoded.PrioritizedIndices) == 0 {
		return nil, "", fmt.Errorf("no prioritized indices in response")
	}
	return decoded.PrioritizedIndices, decoded.Reasoning, nil
}

// Prompt builders. Each asks for bare JSON; extractJSON tolerates
// models that fence the output anyway.

func suggestionPrompt(project *core.Project, existing int) string {
	var b strings.Builder
	b.WriteString("You are a project management assistant. Based on the following project, suggest 5 tasks that would help complete it.\n\n")
	fmt.Fprintf(&b, "Project Name: %s\n", project.Name)
	fmt.Fprintf(&b, "Project Description: %s\n", orDefault(project.Description, "No description"))
	fmt.Fprintf(&b, "Project Status: %s\n", project.Status)
	fmt.Fprintf(&b, "Existing Tasks: %d\n\n", existing)
	b.WriteString("Respond with a JSON array of tasks. Each task has:\n")
	b.WriteString("- title: short actionable title (max 100 chars)\n")
	b.WriteString("- description: 2-3 sentences\n")
	b.WriteString("- priority: one of \"low\", \"medium\", \"high\", \"urgent\"\n")
	b.WriteString("- estimated_hours: realistic number\n\n")
	b.WriteString("Return ONLY the JSON array, no other text.")
	return b.String()
}

func descriptionPrompt(project *core.Project, title string) string {
	var b strings.Builder
	b.WriteString("You are a project management assistant. Write a task description for the following task.\n\n")
	fmt.Fprintf(&b, "Project: %s\n", project.Name)
	fmt.Fprintf(&b, "Project Description: %s\n", orDefault(project.Description, "No description"))
	fmt.Fprintf(&b, "Task Title: %s\n\n", title)
	b.WriteString("Write 2-4 sentences covering what the task involves and what done looks like. ")
	b.WriteString("Return ONLY the description text, no headings or lists.")
	return b.String()
}

func riskPrompt(project *core.Project, tasks []*core.Task, now time.Time) string {
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

	var b strings.Builder
	b.WriteString("You are a project risk analyst. Analyze the following project for delivery risks.\n\n")
	fmt.Fprintf(&b, "Project: %s\n", project.Name)
	fmt.Fprintf(&b, "Total Tasks: %d\n", total)
	fmt.Fprintf(&b, "Completed Tasks: %d\n", completed)
	fmt.Fprintf(&b, "Overdue Tasks: %d\n", overdueCount)
	fmt.Fprintf(&b, "Team Size: %d\n", len(project.MemberIDs)+1)
	fmt.Fprintf(&b, "Project Priority: %s\n\n", project.Priority)
	b.WriteString("Respond with JSON:\n")
	b.WriteString("- risk_score: 0-100\n")
	b.WriteString("- risk_level: one of \"low\", \"medium\", \"high\", \"critical\"\n")
	b.WriteString("- key_risks: array of 3-5 strings\n")
	b.WriteString("- recommendations: array of 3-5 strings\n")
	b.WriteString("- areas_of_concern: array of strings\n\n")
	b.WriteString("Return ONLY the JSON object, no other text.")
	return b.String()
}

func parsePrompt(project *core.Project, input string) string {
	var b strings.Builder
	b.WriteString("Convert the following natural-language request into a structured task.\n\n")
	fmt.Fprintf(&b, "Project Context: %s\n", project.Name)
	fmt.Fprintf(&b, "User Input: %q\n\n", input)
	b.WriteString("Respond with JSON:\n")
	b.WriteString("- title: clear concise title (max 100 chars)\n")
	b.WriteString("- description: detailed description\n")
	b.WriteString("- priority: one of \"low\", \"medium\", \"high\", \"urgent\" (infer from urgency words)\n")
	b.WriteString("- estimated_hours: realistic number\n")
	b.WriteString("- tags: array of 2-4 keywords\n")
	b.WriteString("- due_date_suggestion: relative phrase like \"3 days\" or null\n\n")
	b.WriteString("Return ONLY the JSON object, no other text.")
	return b.String()
}

func prioritizationPrompt(tasks []*core.Task, now time.Time) string {
	type summary struct {
		Index          int      `json:"index"`
		Title          string   `json:"title"`
		Status         string   `json:"status"`
		Priority       string   `json:"priority"`
		IsOverdue      bool     `json:"is_overdue"`
		EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	}
	limit := len(tasks)
	if limit > 20 {
		limit = 20
	}
	summaries := make([]summary, 0, limit)
	for i, task := range tasks[:limit] {
		summaries = append(summaries, summary{
			Index:          i,
			Title:          task.Title,
			Status:         string(task.Status),
			Priority:       string(task.Priority),
			IsOverdue:      overdue(task, now),
			EstimatedHours: task.EstimatedHours,
		})
	}
	encoded, _ := json.MarshalIndent(summaries, "", "  ")

	var b strings.Builder
	b.WriteString("You are a task prioritization expert. Analyze these tasks and suggest an optimal work order.\n\n")
	fmt.Fprintf(&b, "Tasks: %s\n\n", encoded)
	b.WriteString("Consider priority level, overdue status, inferred dependencies, effort, and in-progress status.\n\n")
	b.WriteString("Respond with JSON:\n")
	b.WriteString("- prioritized_indices: array of task indices in optimal order\n")
	b.WriteString("- reasoning: 1-2 sentence explanation\n\n")
	b.WriteString("Return ONLY the JSON object, no other text.")
	return b.String()
}

func summaryPrompt(project *core.Project, tasks []*core.Task) string {
	completed := 0
	for _, task := range tasks {
		if task.Status == core.StatusDone {
			completed++
		}
	}
	var b strings.Builder
	b.WriteString("Generate a concise project summary (3-4 sentences) for:\n\n")
	fmt.Fprintf(&b, "Project: %s\n", project.Name)
	fmt.Fprintf(&b, "Description: %s\n", project.Description)
	fmt.Fprintf(&b, "Status: %s\n", project.Status)
	fmt.Fprintf(&b, "Total Tasks: %d\n", len(tasks))
	fmt.Fprintf(&b, "Completed: %d\n", completed)
	fmt.Fprintf(&b, "Team Size: %d\n\n", len(project.MemberIDs)+1)
	b.WriteString("Write a professional summary highlighting progress, key activities, and next steps.")
	return b.String()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
