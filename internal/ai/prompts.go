// Package ai – prompt builders.
//
// Each builder returns a (system, user) instruction pair. Structured features
// pin the exact JSON shape in the system prompt; the gateway parses and
// defensively filters the result afterwards, so the prompts can stay terse.
package ai

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-issue-board/internal/domain"
)

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(no description)"
	}
	return s
}

// CommentForPrompt is one comment rendered into a prompt.
type CommentForPrompt struct {
	Author    string
	Content   string
	CreatedAt string
}

// SummaryPrompt builds the free-text issue summary instructions.
func SummaryPrompt(issue *domain.Issue, comments []CommentForPrompt) (system, user string) {
	system = `You are a project management assistant. Summarize the core of the issue concisely.
Follow this structure:
- Core content: a 2-3 sentence summary
- Key discussion: important points from the comments (if any)
- Next steps: action items (if identifiable)`

	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following issue:\n\nTitle: %s\n\nDescription:\n%s\n", issue.Title, orNone(issue.Description))
	if len(comments) > 0 {
		fmt.Fprintf(&b, "\nComments (%d):\n", len(comments))
		for _, c := range comments {
			fmt.Fprintf(&b, "- %s: %s\n", c.Author, c.Content)
		}
	}
	return system, b.String()
}

// SuggestionPrompt builds the next-actions instructions. The response shape
// is pinned to suggestions/blockers/estimatedEffort JSON.
func SuggestionPrompt(issue *domain.Issue, statusName string, subtasks []domain.Subtask) (system, user string) {
	system = `You are a project management expert. Analyze the issue's current state and suggest concrete next actions.

Respond in JSON:
{
  "suggestions": [
    {
      "action": "the suggested action",
      "reason": "why",
      "priority": "high" | "medium" | "low"
    }
  ],
  "blockers": ["blockers or concerns found"],
  "estimatedEffort": "estimated time/effort"
}`

	var b strings.Builder
	fmt.Fprintf(&b, "Suggest next actions for the following issue:\n\nTitle: %s\nStatus: %s\nPriority: %s\n\nDescription:\n%s\n",
		issue.Title, statusName, issue.Priority, orNone(issue.Description))
	if len(subtasks) > 0 {
		b.WriteString("\nSubtasks:\n")
		for _, s := range subtasks {
			mark := " "
			if s.IsCompleted {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, s.Title)
		}
	}
	return system, b.String()
}

// LabelsPrompt builds the label suggestion instructions, constrained to the
// project's existing labels.
func LabelsPrompt(issue *domain.Issue, labels []domain.Label) (system, user string) {
	system = `You are an issue triage expert. Analyze the issue and recommend fitting labels.

Only use labels from the provided list. Never invent new labels.

Respond in JSON:
{
  "suggestedLabels": [
    {
      "id": "label ID",
      "name": "label name",
      "confidence": 0.0-1.0
    }
  ],
  "reasoning": "why these labels"
}`

	var b strings.Builder
	fmt.Fprintf(&b, "Recommend labels for the following issue:\n\nTitle: %s\n\nDescription:\n%s\n\nAvailable labels:\n",
		issue.Title, orNone(issue.Description))
	for _, l := range labels {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", l.Name, l.ID)
	}
	return system, b.String()
}

// DuplicatesPrompt builds the duplicate detection instructions against a
// bounded candidate set.
func DuplicatesPrompt(title, description string, candidates []domain.Issue) (system, user string) {
	system = `You are a duplicate issue detection expert. Analyze whether the new issue duplicates any of the existing ones.

Only include candidates with at least 70% similarity.

Respond in JSON:
{
  "duplicates": [
    {
      "id": "existing issue ID",
      "title": "existing issue title",
      "similarity": 0.0-1.0,
      "reason": "why they are similar"
    }
  ],
  "isLikelyDuplicate": true | false,
  "recommendation": "recommended course of action"
}`

	var b strings.Builder
	fmt.Fprintf(&b, "Check whether this new issue duplicates any existing one:\n\nNew issue:\nTitle: %s\nDescription: %s\n\nExisting issues:\n",
		title, orNone(description))
	for _, is := range candidates {
		fmt.Fprintf(&b, "---\nID: %s\nTitle: %s\nDescription: %s\n", is.ID, is.Title, orNone(is.Description))
	}
	return system, b.String()
}

// CommentsPrompt builds the discussion summary instructions.
func CommentsPrompt(comments []CommentForPrompt) (system, user string) {
	system = `You are a discussion summarization expert. Analyze the issue's comments and distill the essentials.

Respond in JSON:
{
  "summary": "overall discussion summary (2-3 sentences)",
  "keyPoints": ["main discussion points"],
  "decisions": ["decisions made"],
  "openQuestions": ["questions still unresolved"],
  "participants": ["active participants"]
}`

	var b strings.Builder
	b.WriteString("Summarize the following comments:\n\n")
	for i, c := range comments {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "[%s] %s:\n%s\n", c.CreatedAt, c.Author, c.Content)
	}
	return system, b.String()
}
