package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// renderDay prints a day's list, one numbered line per task in the order
// the numbers refer to.
func renderDay(summary service.DaySummary, loc *time.Location) string {
	var sb strings.Builder

	label := string(summary.Day)
	if date, err := summary.Day.Date(loc); err == nil {
		label = date.Format("Mon, 02 Jan 2006")
	}
	sb.WriteString(headerStyle.Render(label))
	sb.WriteString("  ")
	sb.WriteString(pendingStyle.Render(service.PendingLabel(summary.Pending)))
	sb.WriteByte('\n')

	if len(summary.Tasks) == 0 {
		sb.WriteString("No tasks.\n")
		return sb.String()
	}
	for i, task := range summary.Tasks {
		sb.WriteString(formatTaskLine(i+1, task, summary.Completed[task.ID]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func formatTaskLine(n int, task model.Task, completed bool) string {
	mark := "[ ]"
	title := lipgloss.NewStyle().Foreground(lipgloss.Color(task.Priority.Color())).Render(task.Title)
	if completed {
		mark = "[x]"
		title = doneStyle.Render(task.Title)
	}

	var meta []string
	meta = append(meta, string(task.Priority))
	if clock, ok := task.DueTime.Get(); ok {
		meta = append(meta, clock.String())
	}
	if task.Daily() {
		meta = append(meta, "daily")
	}
	line := fmt.Sprintf("%2d. %s %s %s", n, mark, title, metaStyle.Render("("+strings.Join(meta, ", ")+")"))
	if task.Description != "" {
		line += "\n      " + metaStyle.Render(task.Description)
	}
	return line
}

// renderReport is the CLI form of the daily report: open tasks first, then
// the ones already done.
func renderReport(user model.User, summary service.DaySummary, loc *time.Location) string {
	var todo, done []string
	for _, task := range summary.Tasks {
		line := "  " + service.PriorityIcon(task.Priority) + " " + task.Title
		if clock, ok := task.DueTime.Get(); ok {
			line += " " + metaStyle.Render(clock.String())
		}
		if summary.Completed[task.ID] {
			done = append(done, line)
		} else {
			todo = append(todo, line)
		}
	}

	label := string(summary.Day)
	if date, err := summary.Day.Date(loc); err == nil {
		label = date.Format("Mon, 02 Jan 2006")
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Daily report " + label))
	sb.WriteByte('\n')
	sb.WriteString(fmt.Sprintf("Hii %s, %s\n", user.FirstName(), service.PendingLabel(summary.Pending)))
	if len(summary.Tasks) == 0 {
		sb.WriteString("Nothing planned.\n")
		return sb.String()
	}
	if len(todo) > 0 {
		sb.WriteString(pendingStyle.Render("To do") + "\n")
		sb.WriteString(strings.Join(todo, "\n") + "\n")
	}
	if len(done) > 0 {
		sb.WriteString(doneStyle.UnsetStrikethrough().Render("Done") + "\n")
		sb.WriteString(strings.Join(done, "\n") + "\n")
	}
	return sb.String()
}
