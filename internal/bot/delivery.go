package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

// DeliverReminders sends every firing to its recipient's chat until ctx is
// cancelled or firings is closed.
func (b *Bot) DeliverReminders(ctx context.Context, firings <-chan service.Firing) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-firings:
			if !ok {
				return
			}
			if err := b.deliver(ctx, f); err != nil {
				b.log.Printf("[warn] deliver reminder %s: %v", f.Handle, err)
			}
		}
	}
}

func (b *Bot) deliver(ctx context.Context, f service.Firing) error {
	current, err := b.planner.ConfirmFiring(ctx, f)
	if err != nil {
		return err
	}
	if !current {
		return nil
	}
	user, err := b.users.FindByID(ctx, f.Recipient)
	if err != nil {
		return err
	}
	if user.Provider == model.ProviderLocal {
		// Local users have no chat; the log is all they get.
		b.log.Printf("[info] reminder for %s: %s", user.DisplayName, f.Title)
		return nil
	}
	chatID, err := telegramChat(user)
	if err != nil {
		return err
	}
	return b.sendText(chatID, reminderText(f.Reminder))
}

func reminderText(r service.Reminder) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⏰ <b>%s</b>", escape(normalizeTitle(r.Title))))
	if r.Body != "" {
		sb.WriteString("\n" + escape(r.Body))
	}
	if r.Daily {
		sb.WriteString("\n♻️ <i>every day</i>")
	}
	return sb.String()
}

// SendDailyReports sends a summary of today to every telegram user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.users.ListByProvider(ctx, model.ProviderTelegram)
	if err != nil {
		return err
	}
	today := b.planner.Today()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chatID, err := telegramChat(user)
		if err != nil {
			b.log.Printf("report for %s: %v", user.ID, err)
			continue
		}
		text, err := b.reports.DailySummary(ctx, user, today)
		if err != nil {
			b.log.Printf("build summary for user %s: %v", user.ID, err)
			continue
		}
		if err := b.sendText(chatID, text); err != nil {
			b.log.Printf("send summary to %d: %v", chatID, err)
		}
	}
	return nil
}

// telegramChat is the private chat of a telegram user, which shares the
// account id.
func telegramChat(user model.User) (int64, error) {
	if user.Provider != model.ProviderTelegram {
		return 0, fmt.Errorf("user %s is not a telegram user", user.ID)
	}
	id, err := strconv.ParseInt(user.ExternalID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user %s: bad telegram id %q: %w", user.ID, user.ExternalID, err)
	}
	return id, nil
}
