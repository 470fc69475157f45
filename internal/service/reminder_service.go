package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"daily-todo/internal/model"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	planner *Planner
}

func NewReminderService(planner *Planner) *ReminderService {
	return &ReminderService{planner: planner}
}

// DailySummary renders the user's list for day as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, day model.Day) (string, error) {
	summary, err := s.planner.DaySummary(ctx, user.ID, day, SortDueTime)
	if err != nil {
		return "", err
	}

	var pending, done []model.Task
	for _, task := range summary.Tasks {
		if summary.Completed[task.ID] {
			done = append(done, task)
		} else {
			pending = append(pending, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	if date, err := day.Date(s.planner.Location()); err == nil {
		builder.WriteString(fmt.Sprintf("🗓 %s\n", date.Format("Mon, 02 Jan 2006")))
	}
	builder.WriteString(fmt.Sprintf("Hii %s, %s\n\n", html.EscapeString(user.FirstName()), PendingLabel(summary.Pending)))

	builder.WriteString("🔥 <b>To do</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing left for today\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, false))
		}
	}

	if len(done) > 0 {
		builder.WriteString("\n✅ <b>Done</b>\n")
		for _, task := range done {
			builder.WriteString(formatTask(task, true))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// PendingLabel is the "{n} tasks pending" line of the task list header.
func PendingLabel(n int) string {
	if n == 1 {
		return "1 task pending"
	}
	return fmt.Sprintf("%d tasks pending", n)
}

// PriorityIcon is the flag shown in front of a task title.
func PriorityIcon(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟠"
	default:
		return "🟢"
	}
}

func formatTask(task model.Task, completed bool) string {
	var sb strings.Builder

	icon := PriorityIcon(task.Priority)
	if completed {
		icon = "✔️"
	}
	title := html.EscapeString(strings.TrimSpace(task.Title))
	if completed {
		title = "<s>" + title + "</s>"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, title))

	if clock, ok := task.DueTime.Get(); ok {
		sb.WriteString(fmt.Sprintf(" · ⏰ %s", clock))
	}
	if task.Daily() {
		sb.WriteString(" · ♻️")
	}
	if task.Description != "" && !completed {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}
