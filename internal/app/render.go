package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"teamsync/internal/session"
	"teamsync/internal/timeline"
	"teamsync/internal/types"
)

const (
	minBubbleWidth = 20
	timestampFmt   = "15:04"
)

// renderTimeline lays out every entry as a bubble. Width is the full column
// available to the transcript.
func renderTimeline(md *markdownRenderer, entries []types.TimelineEntry, width int) string {
	if len(entries) == 0 {
		return helpStyle.Render("Type a message and press enter to start a session.")
	}
	inner := bubbleInnerWidth(width)
	blocks := make([]string, 0, len(entries))
	for _, entry := range entries {
		blocks = append(blocks, renderEntry(md, entry, inner))
	}
	return strings.Join(blocks, "\n")
}

func renderEntry(md *markdownRenderer, entry types.TimelineEntry, inner int) string {
	meta := metaStyle.Render(entryLabel(entry))
	switch entry.Kind {
	case types.EntryKindTaskStarted, types.EntryKindTaskCompleted:
		body := systemBubbleStyle.Width(inner).Render(xansi.Wordwrap(entry.Content, inner, " "))
		return meta + "\n" + body
	case types.EntryKindInquiryQuestion:
		body := questionStyle.Width(inner).Render(md.Render(entry.Content, inner))
		return meta + "\n" + body
	case types.EntryKindFinalSpecification:
		body := specificationStyle.Width(inner).Render(md.Render(entry.Content, inner))
		return meta + "\n" + body
	}
	if entry.Sender == types.SenderUser {
		text := entry.Content
		if md.Enabled() {
			text = escapeUserText(text)
		}
		body := userBubbleStyle.Width(inner).Render(md.Render(text, inner))
		return lipgloss.PlaceHorizontal(inner+4, lipgloss.Right, meta+"\n"+body)
	}
	if entry.Sender == types.SenderSystem {
		return meta + "\n" + systemBubbleStyle.Width(inner).Render(xansi.Wordwrap(entry.Content, inner, " "))
	}
	return meta + "\n" + agentBubbleStyle.Width(inner).Render(md.Render(entry.Content, inner))
}

func entryLabel(entry types.TimelineEntry) string {
	label := strings.TrimSpace(entry.Sender)
	switch entry.Kind {
	case types.EntryKindTaskStarted:
		label = "task started"
	case types.EntryKindTaskCompleted:
		label = "task completed"
	case types.EntryKindInquiryQuestion:
		label = "question"
		if entry.Sender != "" && entry.Sender != types.SenderSystem {
			label = "question from " + entry.Sender
		}
	case types.EntryKindFinalSpecification:
		label = "final specification"
	}
	if label == "" {
		label = "agent"
	}
	if !entry.CreatedAt.IsZero() {
		label += " · " + entry.CreatedAt.Local().Format(timestampFmt)
	}
	return label
}

func bubbleInnerWidth(width int) int {
	// Border and horizontal padding on both sides.
	inner := width - 4
	if inner < minBubbleWidth {
		inner = minBubbleWidth
	}
	return inner
}

// renderTasks draws the backlog as one status-marked line per task.
func renderTasks(tasks []types.Task, width int) string {
	if width <= 0 {
		width = taskPaneWidth
	}
	lines := []string{headerStyle.Render("Tasks")}
	if len(tasks) == 0 {
		lines = append(lines, helpStyle.Render("no tasks yet"))
		return strings.Join(lines, "\n")
	}
	for _, task := range tasks {
		marker, style := taskMarker(task.Status)
		label := runewidth.Truncate(task.Label(), width-3, "…")
		lines = append(lines, style.Render(marker+" "+label))
	}
	return strings.Join(lines, "\n")
}

func taskMarker(status types.TaskStatus) (string, lipgloss.Style) {
	switch status {
	case types.TaskStatusInProgress:
		return "●", taskActiveStyle
	case types.TaskStatusDone:
		return "✓", taskDoneStyle
	case types.TaskStatusFailed:
		return "✗", taskFailedStyle
	case types.TaskStatusAwaitingUserInput:
		return "?", taskWaitingStyle
	default:
		return "○", taskPendingStyle
	}
}

// renderInquiryPrompt is shown above the input while the session waits on
// the user.
func renderInquiryPrompt(inquiry *types.Inquiry, width int) string {
	if inquiry == nil {
		return ""
	}
	lines := []string{taskWaitingStyle.Bold(true).Render(timeline.QuestionText(inquiry))}
	for _, detail := range timeline.QuestionDetails(inquiry) {
		lines = append(lines, helpStyle.Render(xansi.Wordwrap(detail, width, " ")))
	}
	return strings.Join(lines, "\n")
}

func stateLabel(view session.View) string {
	switch view.State {
	case session.StateIdle:
		return "idle"
	case session.StateStarting:
		return "starting"
	case session.StatePolling:
		return "working"
	case session.StateAwaitingUserInput:
		return "waiting for your answer"
	case session.StateCompleted:
		return "completed"
	case session.StateErrored:
		return "errored"
	case session.StateStopped:
		return "stopped"
	default:
		return string(view.State)
	}
}

func renderStatusLine(view session.View, spinner string, width int) string {
	parts := []string{}
	if spinner != "" {
		parts = append(parts, strings.TrimSpace(spinner))
	}
	parts = append(parts, stateLabel(view))
	if view.SessionID != "" {
		parts = append(parts, "session "+view.SessionID)
	}
	if len(view.Tasks) > 0 {
		done := 0
		for _, task := range view.Tasks {
			if task.Status == types.TaskStatusDone {
				done++
			}
		}
		parts = append(parts, fmt.Sprintf("%d/%d tasks done", done, len(view.Tasks)))
	}
	if view.PollEvery > 0 && view.State.Active() {
		parts = append(parts, "every "+view.PollEvery.String())
	}
	line := statusStyle.Render(strings.Join(parts, " · "))
	if view.LastError != "" {
		line += "  " + errorStyle.Render(view.LastError)
	}
	return xansi.Truncate(line, width, "…")
}
