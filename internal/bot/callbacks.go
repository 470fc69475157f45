package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Printf("callback ack: %v", err)
	}

	s, err := b.ensureSession(ctx, cb.Message.Chat.ID, cb.From)
	if err != nil {
		return err
	}
	data := cb.Data
	b.log.Printf("[info] callback %q user=%s", data, s.user.ID)

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		return b.toggle(ctx, s, model.TaskID(strings.TrimPrefix(data, cbTogglePrefix)))
	case strings.HasPrefix(data, cbDeletePrefix):
		task, err := b.planner.Tasks().GetTask(ctx, model.TaskID(strings.TrimPrefix(data, cbDeletePrefix)))
		if err != nil || task.OwnerID != s.user.ID {
			return b.sendText(s.chatID, "That task no longer exists.")
		}
		return b.askDeleteConfirmation(s, task)
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.clearConfirmation(s.chatID)
		return b.deleteTask(ctx, s, model.TaskID(strings.TrimPrefix(data, cbConfirmPrefix)))
	case strings.HasPrefix(data, cbCancelPrefix):
		b.clearConfirmation(s.chatID)
		return nil
	case strings.HasPrefix(data, cbNavPrefix):
		n, err := parseNav(data)
		if err != nil {
			return nil
		}
		if n == 0 {
			return s.board.SelectDay(s.board.Today())
		}
		_, err = s.board.Shift(n)
		return err
	case strings.HasPrefix(data, cbSortPrefix):
		opt, err := service.ParseSortOption(strings.TrimPrefix(data, cbSortPrefix))
		if err != nil {
			return nil
		}
		s.board.SetSort(opt)
		return nil
	default:
		return nil
	}
}

func (b *Bot) askDeleteConfirmation(s *session, task model.Task) error {
	b.setConfirmation(s.chatID, task.ID)
	text := fmt.Sprintf("Delete «%s»? Its history goes with it.", escape(normalizeTitle(task.Title)))
	return b.sendWithReplyMarkup(s.chatID, text, confirmDeleteKeyboard(task.ID))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, id model.TaskID) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	switch {
	case isYesInput(msg.Text):
		b.clearConfirmation(msg.Chat.ID)
		return b.deleteTask(ctx, s, id)
	case isNoInput(msg.Text):
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "Kept.")
	default:
		return b.sendText(msg.Chat.ID, "Answer Yes to delete or No to keep the task.")
	}
}

func (b *Bot) deleteTask(ctx context.Context, s *session, id model.TaskID) error {
	if err := b.planner.RemoveTask(ctx, s.user.ID, id); err != nil {
		return b.reportError(s.chatID, "delete task", err)
	}
	b.log.Printf("[info] task deleted id=%s user=%s", id, s.user.ID)
	return b.sendText(s.chatID, "🗑 Deleted.")
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelPrev):
		return true, b.handleShift(ctx, msg, -1)
	case strings.ToLower(menuLabelNext):
		return true, b.handleShift(ctx, msg, 1)
	case strings.ToLower(menuLabelHelp):
		return true, b.sendText(msg.Chat.ID, helpText)
	default:
		return false, nil
	}
}
