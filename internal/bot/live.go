package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-todo/internal/board"
)

// followBoard keeps the session's board message in step with the board until
// the board is closed.
func (b *Bot) followBoard(s *session) {
	defer close(s.done)
	for st := range s.board.Updates() {
		if err := b.showBoard(s, st, false); err != nil {
			b.log.Printf("update board message chat=%d: %v", s.chatID, err)
		}
	}
}

// repostBoard sends the board as a new message at the bottom of the chat.
// Later updates edit that message.
func (b *Bot) repostBoard(s *session) error {
	return b.showBoard(s, s.board.State(), true)
}

func (b *Bot) showBoard(s *session, st board.State, repost bool) error {
	text := renderBoard(s.user, st, s.board.Today(), b.loc)
	markup := boardKeyboard(st)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !repost && s.messageID != 0 {
		if text == s.lastText {
			return nil
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(s.chatID, s.messageID, text, markup)
		edit.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(edit); err != nil && !strings.Contains(err.Error(), "message is not modified") {
			return err
		}
		s.lastText = text
		return nil
	}
	if !repost {
		// Nothing to edit yet; the board is posted by /start or /tasks.
		return nil
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	sent, err := b.api.Send(msg)
	if err != nil {
		return err
	}
	s.messageID, s.lastText = sent.MessageID, text
	return nil
}
