// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/synergyos/synergy/services/synergy/core"
)

type stubLLM struct {
	response string
	err      error
	prompts  []string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

var testNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func seedProject(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.SaveProject(ctx, &core.Project{
		ID: "p1", Name: "Apollo", Status: core.ProjectActive,
		Priority: core.PriorityHigh, OwnerID: "owner",
		CreatedAt: testNow, UpdatedAt: testNow,
	}); err != nil {
		t.Fatal(err)
	}

	overdue := testNow.Add(-48 * time.Hour)
	tasks := []*core.Task{
		{ID: "t1", Title: "ship docs", Status: core.StatusTodo, Priority: core.PriorityLow},
		{ID: "t2", Title: "fix login", Status: core.StatusInProgress, Priority: core.PriorityHigh},
		{ID: "t3", Title: "late migration", Status: core.StatusTodo, Priority: core.PriorityMedium, DueDate: &overdue},
		{ID: "t4", Title: "landed", Status: core.StatusDone, Priority: core.PriorityMedium, CompletedAt: &testNow},
	}
	for _, task := range tasks {
		task.ProjectID = "p1"
		task.CreatedAt = testNow
		task.UpdatedAt = testNow
		if err := store.SaveTask(context.Background(), task); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store := core.NewMemoryStore()
	seedProject(t, store)
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	return NewService(store, opts...)
}

func TestSuggestTasks_Fallback(t *testing.T) {
	service := newTestService(t)
	if service.Enabled() {
		t.Fatal("service should report disabled without a client")
	}

	suggestions, err := service.SuggestTasks(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("got %d suggestions, want 3", len(suggestions))
	}
	if !strings.Contains(suggestions[0].Title, "Apollo") {
		t.Fatalf("first suggestion = %q, want project name", suggestions[0].Title)
	}
	for _, s := range suggestions {
		if !s.Priority.Valid() || s.EstimatedHours <= 0 {
			t.Fatalf("invalid suggestion %+v", s)
		}
	}
}

func TestSuggestTasks_ModelResponse(t *testing.T) {
	llm := &stubLLM{response: "```json\n" + `[
		{"title": "Wire CI", "description": "Add a pipeline.", "priority": "high", "estimated_hours": 3},
		{"title": "Weird", "priority": "??", "estimated_hours": -1},
		{"description": "no title, dropped"}
	]` + "\n```"}
	service := newTestService(t, WithLLM(llm))

	suggestions, err := service.SuggestTasks(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(suggestions))
	}
	if suggestions[0].Title != "Wire CI" || suggestions[0].Priority != core.PriorityHigh {
		t.Fatalf("first = %+v", suggestions[0])
	}
	// Unknown priority and non-positive hours get defaulted.
	if suggestions[1].Priority != core.PriorityMedium || suggestions[1].EstimatedHours != 4 {
		t.Fatalf("second = %+v", suggestions[1])
	}
	if len(llm.prompts) != 1 || !strings.Contains(llm.prompts[0], "Apollo") {
		t.Fatalf("prompt did not carry project context: %v", llm.prompts)
	}
}

func TestSuggestTasks_ModelErrorFallsBack(t *testing.T) {
	llm := &stubLLM{err: errors.New("rate limited")}
	service := newTestService(t, WithLLM(llm))

	suggestions, err := service.SuggestTasks(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("expected fallback suggestions, got %d", len(suggestions))
	}
}

func TestSuggestTasks_UnknownProject(t *testing.T) {
	service := newTestService(t)
	if _, err := service.SuggestTasks(context.Background(), "nope"); !errors.Is(err, core.ErrProjectNotFound) {
		t.Fatalf("err = %v, want ErrProjectNotFound", err)
	}
}

func TestAnalyzeRisks_Fallback(t *testing.T) {
	service := newTestService(t)

	analysis, err := service.AnalyzeRisks(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	// Base 30, one overdue task (+10), completion 1/4 < 30% (+20).
	if analysis.RiskScore != 60 {
		t.Fatalf("risk score = %d, want 60", analysis.RiskScore)
	}
	if analysis.RiskLevel != "medium" {
		t.Fatalf("risk level = %s, want medium", analysis.RiskLevel)
	}
	if len(analysis.KeyRisks) == 0 || len(analysis.Recommendations) == 0 {
		t.Fatal("fallback analysis missing guidance")
	}
}

func TestAnalyzeRisks_ModelClamps(t *testing.T) {
	llm := &stubLLM{response: `{"risk_score": 250, "risk_level": "apocalyptic", "key_risks": ["a","b","c","d","e","f","g"]}`}
	service := newTestService(t, WithLLM(llm))

	analysis, err := service.AnalyzeRisks(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if analysis.RiskScore != 100 {
		t.Fatalf("risk score = %d, want clamped 100", analysis.RiskScore)
	}
	if analysis.RiskLevel != "medium" {
		t.Fatalf("risk level = %s, want defaulted medium", analysis.RiskLevel)
	}
	if len(analysis.KeyRisks) != 5 {
		t.Fatalf("key risks capped at 5, got %d", len(analysis.KeyRisks))
	}
}

func TestParseTask_Fallback(t *testing.T) {
	service := newTestService(t)

	long := strings.Repeat("x", 150)
	parsed, err := service.ParseTask(context.Background(), "p1", long)
	if err != nil {
		t.Fatal(err)
	}
	if len([]rune(parsed.Title)) != 100 || !strings.HasSuffix(parsed.Title, "...") {
		t.Fatalf("title = %q (%d runes)", parsed.Title, len([]rune(parsed.Title)))
	}
	if parsed.Description != long || parsed.Priority != core.PriorityMedium || parsed.EstimatedHours != 2 {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestParseTask_ModelResponse(t *testing.T) {
	llm := &stubLLM{response: `{"title": "Fix login timeout", "description": "Sessions expire early.", "priority": "urgent", "estimated_hours": 1.5, "tags": ["auth", "bug"], "due_date_suggestion": "3 days"}`}
	service := newTestService(t, WithLLM(llm))

	parsed, err := service.ParseTask(context.Background(), "p1", "login keeps timing out, urgent!")
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Title != "Fix login timeout" || parsed.Priority != core.PriorityUrgent {
		t.Fatalf("parsed = %+v", parsed)
	}
	if parsed.EstimatedHours != 1 || len(parsed.Tags) != 2 || parsed.DueDateSuggestion != "3 days" {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestDescribeTask_Fallback(t *testing.T) {
	service := newTestService(t)

	text, err := service.DescribeTask(context.Background(), "p1", "Write onboarding guide")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Write onboarding guide") || !strings.Contains(text, "Apollo") {
		t.Fatalf("description = %q", text)
	}
}

func TestDescribeTask_ModelResponse(t *testing.T) {
	llm := &stubLLM{response: "  Draft the guide covering setup, first task, and review flow.  "}
	service := newTestService(t, WithLLM(llm))

	text, err := service.DescribeTask(context.Background(), "p1", "Write onboarding guide")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Draft the guide covering setup, first task, and review flow." {
		t.Fatalf("description = %q", text)
	}
}

func TestDescribeTask_EmptyModelResponseFallsBack(t *testing.T) {
	llm := &stubLLM{response: "   "}
	service := newTestService(t, WithLLM(llm))

	text, err := service.DescribeTask(context.Background(), "p1", "Write onboarding guide")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Apollo") {
		t.Fatalf("description = %q", text)
	}
}

func TestPrioritizeTasks_Fallback(t *testing.T) {
	service := newTestService(t)

	ordered, reasoning, err := service.PrioritizeTasks(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if reasoning == "" {
		t.Fatal("expected reasoning text")
	}
	// Done task excluded; overdue first, then in-progress, then the rest.
	ids := make([]string, len(ordered))
	for i, task := range ordered {
		ids[i] = task.ID
	}
	want := []string{"t3", "t2", "t1"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", ids, want)
	}
}

func TestPrioritizeTasks_ModelOrder(t *testing.T) {
	llm := &stubLLM{response: `{"prioritized_indices": [1, 99, 1, 0], "reasoning": "Login first."}`}
	service := newTestService(t, WithLLM(llm))

	ordered, reasoning, err := service.PrioritizeTasks(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if reasoning != "Login first." {
		t.Fatalf("reasoning = %q", reasoning)
	}
	// Out-of-range and duplicate indices are dropped; unmentioned open
	// tasks are appended in store order.
	ids := make([]string, len(ordered))
	for i, task := range ordered {
		ids[i] = task.ID
	}
	if len(ids) != 3 || ids[0] != ordered[0].ID {
		t.Fatalf("order = %v", ids)
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate task %s in order %v", id, ids)
		}
		seen[id] = true
	}
}

func TestSummarize_Fallback(t *testing.T) {
	service := newTestService(t)

	summary, err := service.Summarize(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(summary, "Apollo") || !strings.Contains(summary, "1 of 4 tasks") {
		t.Fatalf("summary = %q", summary)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare object", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "fenced", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "fenced no lang", in: "```\n[1, 2]\n```", want: `[1, 2]`},
		{name: "prose around object", in: `Sure! Here it is: {"a": 1} Hope that helps.`, want: `{"a": 1}`},
		{name: "prose around array", in: `The tasks: [{"title": "x"}] as requested`, want: `[{"title": "x"}]`},
		{name: "no json", in: "I cannot help with that.", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractJSON(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("got %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
