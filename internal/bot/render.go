package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-todo/internal/board"
	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

const (
	cbTogglePrefix  = "toggle:"
	cbDeletePrefix  = "delete:"
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
	cbNavPrefix     = "nav:"
	cbSortPrefix    = "sort:"
)

const (
	btnSkip          = "⏭️ Skip"
	btnYes           = "Yes"
	btnNo            = "No"
	btnToday         = "Today"
	btnTomorrow      = "Tomorrow"
	btnCancelDialog  = "⏪ Cancel"
	menuLabelNewTask = "➕ New task"
	menuLabelTasks   = "📋 Tasks"
	menuLabelPrev    = "◀️ Prev day"
	menuLabelNext    = "Next day ▶️"
	menuLabelHelp    = "ℹ️ Help"
)

const failureText = "⚠️ Something went wrong. Please try again."

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /newtask — add a task step by step\n" +
	"• /tasks — show the list for the selected day\n" +
	"• /day &lt;date&gt; — pick a day (today, tomorrow or 2025-11-30)\n" +
	"• /next, /prev — move one day\n" +
	"• /done &lt;n&gt; — mark task n done or not done\n" +
	"• /delete &lt;n&gt; — delete task n\n" +
	"• /sort [default|dueTime|priority] — change the order\n" +
	"• /report — summary of the selected day\n" +
	"• /logout — sign out\n" +
	"• /cancel — cancel the current input"

// renderBoard is the text of the live board message.
func renderBoard(user model.User, st board.State, today model.Day, loc *time.Location) string {
	var sb strings.Builder

	label := string(st.Day)
	if date, err := st.Day.Date(loc); err == nil {
		label = date.Format("Mon, 02 Jan 2006")
	}
	sb.WriteString(fmt.Sprintf("📅 <b>%s</b>", label))
	switch st.Day {
	case today:
		sb.WriteString(" · today")
	case today.AddDays(1):
		sb.WriteString(" · tomorrow")
	case today.AddDays(-1):
		sb.WriteString(" · yesterday")
	}
	sb.WriteByte('\n')

	if !st.Online {
		sb.WriteString("📴 <i>Offline. Changes are saved and will show up once we are back.</i>\n")
	}

	switch {
	case st.Err != nil && !st.Ready():
		sb.WriteString("\n⚠️ Could not load the list. It will refresh on the next change.")
		return sb.String()
	case !st.Ready():
		sb.WriteString("\n⏳ Loading…")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Hii %s · %s\n", escape(user.FirstName()), service.PendingLabel(st.Pending)))
	if st.Sort != service.SortDefault {
		sb.WriteString(fmt.Sprintf("<i>sorted by %s</i>\n", sortLabel(st.Sort)))
	}
	sb.WriteByte('\n')

	if len(st.Tasks) == 0 {
		sb.WriteString("Nothing planned. Add a task with /newtask.")
		return sb.String()
	}
	for i, task := range st.Tasks {
		sb.WriteString(formatBoardTask(i+1, task, st.Completed[task.ID]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatBoardTask(n int, task model.Task, completed bool) string {
	var sb strings.Builder
	icon := service.PriorityIcon(task.Priority)
	title := escape(normalizeTitle(task.Title))
	if completed {
		icon = "✔️"
		title = "<s>" + title + "</s>"
	}
	sb.WriteString(fmt.Sprintf("%d. %s %s", n, icon, title))
	if clock, ok := task.DueTime.Get(); ok {
		sb.WriteString(fmt.Sprintf(" · ⏰ %s", clock))
	}
	if task.Daily() {
		sb.WriteString(" · ♻️")
	}
	sb.WriteByte('\n')
	if task.Description != "" && !completed {
		sb.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
	}
	return sb.String()
}

// boardKeyboard has a toggle and a delete button per task plus day navigation.
func boardKeyboard(st board.State) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(st.Tasks)+1)
	if st.Ready() {
		for i, task := range st.Tasks {
			mark := "✅"
			if st.Completed[task.ID] {
				mark = "↩️"
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d · %s", mark, i+1, shortTitle(task.Title, 24)), cbTogglePrefix+string(task.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+string(task.ID)),
			))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️", cbNavPrefix+"-1"),
		tgbotapi.NewInlineKeyboardButtonData("Today", cbNavPrefix+"0"),
		tgbotapi.NewInlineKeyboardButtonData("▶️", cbNavPrefix+"1"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func sortKeyboard(current service.SortOption) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(service.SortOptions))
	for _, opt := range service.SortOptions {
		label := sortLabel(opt)
		if opt == current {
			label = "• " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbSortPrefix+string(opt)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func confirmDeleteKeyboard(id model.TaskID) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", cbConfirmPrefix+string(id)),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", cbCancelPrefix+string(id)),
	))
}

func sortLabel(opt service.SortOption) string {
	switch opt {
	case service.SortDueTime:
		return "due time"
	case service.SortPriority:
		return "priority"
	default:
		return "newest"
	}
}

// parseDayArg understands today, tomorrow, yesterday and YYYY-MM-DD. An empty
// argument keeps current.
func parseDayArg(arg string, today, current model.Day) (model.Day, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "":
		if current != "" {
			return current, nil
		}
		return today, nil
	case "today", strings.ToLower(btnToday):
		return today, nil
	case "tomorrow", strings.ToLower(btnTomorrow):
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	return model.ParseDay(arg)
}

func parseNav(data string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(data, cbNavPrefix))
	if err != nil || n < -1 || n > 1 {
		return 0, fmt.Errorf("bad nav %q", data)
	}
	return n, nil
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPrev),
			tgbotapi.NewKeyboardButton(menuLabelNext),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func dateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnToday),
			tgbotapi.NewKeyboardButton(btnTomorrow),
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(service.PriorityIcon(model.PriorityHigh)+" high"),
			tgbotapi.NewKeyboardButton(service.PriorityIcon(model.PriorityMedium)+" medium"),
			tgbotapi.NewKeyboardButton(service.PriorityIcon(model.PriorityLow)+" low"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}

func isYesInput(text string) bool {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "yes", "y", "delete", "confirm":
		return true
	}
	return false
}

func isNoInput(text string) bool {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "no", "n", "-", "keep":
		return true
	}
	return false
}

// stripIcon drops a leading emoji from a keyboard label.
func stripIcon(text string) string {
	return strings.TrimLeftFunc(strings.TrimSpace(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func escape(s string) string {
	return html.EscapeString(s)
}
