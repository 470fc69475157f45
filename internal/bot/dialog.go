package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-todo/internal/model"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageDate
	stageTime
	stagePriority
	stageDaily
)

// conversationState collects a new task one answer at a time.
type conversationState struct {
	stage conversationStage
	// day is the board day the dialog started on; a skipped date means it.
	day         model.Day
	title       string
	description string
	due         model.Optional[model.Day]
	dueTime     model.Optional[model.ClockTime]
	priority    model.Priority
	daily       bool
}

func newConversation(day model.Day) *conversationState {
	return &conversationState{stage: stageTitle, day: day, priority: model.PriorityLow}
}

// step consumes one answer and returns the next prompt. finished means the
// input is complete.
func (c *conversationState) step(text string, today model.Day) (prompt string, markup any, finished bool) {
	text = strings.TrimSpace(text)
	switch c.stage {
	case stageTitle:
		if text == "" {
			return "The title cannot be empty. How should the task be called?", cancelKeyboard(), false
		}
		c.title = text
		c.stage = stageDescription
		return "✏️ Add a short description (or Skip).", skipKeyboard(), false
	case stageDescription:
		if !isSkipInput(text) {
			c.description = text
		}
		c.stage = stageDate
		return fmt.Sprintf("📅 Which day? today, tomorrow or <code>2025-11-30</code>. Skip keeps %s.", c.day), dateKeyboard(), false
	case stageDate:
		if !isSkipInput(text) {
			day, err := parseDayArg(text, today, c.day)
			if err != nil {
				return "I cannot read that date. Use <code>2025-11-30</code>, today or tomorrow.", dateKeyboard(), false
			}
			c.due = model.Some(day)
		}
		c.stage = stageTime
		return "⏰ Remind me at what time? <code>HH:MM</code>, 24h (or Skip for no reminder).", skipKeyboard(), false
	case stageTime:
		if !isSkipInput(text) {
			clock, err := model.ParseClock(text)
			if err != nil {
				return "I cannot read that time. Use <code>18:30</code> or Skip.", skipKeyboard(), false
			}
			c.dueTime = model.Some(clock)
		}
		c.stage = stagePriority
		return "🚩 Priority?", priorityKeyboard(), false
	case stagePriority:
		p, err := model.ParsePriority(stripIcon(text))
		if err != nil {
			return "Pick high, medium or low.", priorityKeyboard(), false
		}
		c.priority = p
		c.stage = stageDaily
		return "♻️ Repeat every day?", yesNoKeyboard(), false
	case stageDaily:
		switch {
		case isYesInput(text):
			c.daily = true
		case isNoInput(text):
			c.daily = false
		default:
			return "Answer Yes or No.", yesNoKeyboard(), false
		}
		c.stage = stageNone
		return "", nil, true
	default:
		return "", nil, true
	}
}

func (c *conversationState) input() model.TaskInput {
	var schedule model.Schedule = model.OnDay{Day: c.due.OrElse(c.day)}
	if c.daily {
		schedule = model.EveryDay{}
	}
	return model.TaskInput{
		Title:       c.title,
		Description: c.description,
		Schedule:    schedule,
		DueTime:     c.dueTime,
		Priority:    c.priority,
	}
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	b.log.Printf("[info] start new task conversation user=%s", s.user.ID)
	b.clearConfirmation(msg.Chat.ID)
	b.setConversation(msg.Chat.ID, newConversation(s.board.State().Day))
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what is it called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.Chat.ID)
	if state == nil {
		return nil
	}
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}

	prompt, markup, finished := state.step(msg.Text, s.board.Today())
	if !finished {
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, markup)
	}
	b.clearConversation(msg.Chat.ID)

	task, err := b.planner.AddTask(ctx, s.user.ID, state.input())
	if err != nil {
		return b.reportError(msg.Chat.ID, "add task", err)
	}

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("✅ <b>Saved:</b> %s\n", escape(normalizeTitle(task.Title))))
	if day, ok := task.DueDay().Get(); ok {
		summary.WriteString(fmt.Sprintf("• <b>Day:</b> %s\n", day))
	} else {
		summary.WriteString("• <b>Every day</b>\n")
	}
	if clock, ok := task.DueTime.Get(); ok {
		note := ""
		if !task.Notification.IsSet() {
			note = " (no reminder scheduled)"
		}
		summary.WriteString(fmt.Sprintf("• <b>Time:</b> %s%s\n", clock, note))
	}
	summary.WriteString(fmt.Sprintf("• <b>Priority:</b> %s", task.Priority))

	if err := b.sendText(msg.Chat.ID, summary.String()); err != nil {
		return err
	}
	return b.repostBoard(s)
}
