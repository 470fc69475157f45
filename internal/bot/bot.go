package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-todo/internal/board"
	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

// UserStore resolves telegram accounts to users.
type UserStore interface {
	Upsert(ctx context.Context, provider, externalID, displayName string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	ListByProvider(ctx context.Context, provider string) ([]model.User, error)
}

// session is a signed-in chat with its live board message.
type session struct {
	user   model.User
	chatID int64
	board  *board.Board
	done   chan struct{}

	mu        sync.Mutex
	messageID int
	lastText  string
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api     *tgbotapi.BotAPI
	users   UserStore
	planner *service.Planner
	reports *service.ReminderService
	loc     *time.Location
	log     *log.Logger

	mu            sync.Mutex
	online        bool
	sessions      map[int64]*session
	conversations map[int64]*conversationState
	confirmations map[int64]model.TaskID
}

func New(token string, users UserStore, planner *service.Planner, reports *service.ReminderService, logger *log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	logger.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		users:         users,
		planner:       planner,
		reports:       reports,
		loc:           planner.Location(),
		log:           logger,
		online:        true,
		sessions:      make(map[int64]*session),
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]model.TaskID),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Printf("handle message: %v", err)
			}
		}
	}

	b.closeAll()
	return nil
}

// SetOnline is wired to the reachability monitor.
func (b *Bot) SetOnline(online bool) {
	b.mu.Lock()
	b.online = online
	sessions := make([]*session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()
	for _, s := range sessions {
		s.board.SetOnline(online)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if isCancelInput(msg.Text) {
		b.clearConversation(msg.Chat.ID)
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if id, ok := b.getConfirmation(msg.Chat.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, id)
	}

	if b.hasConversation(msg.Chat.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newtask to add a task or /help for the list of commands.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "logout":
		return b.handleLogout(msg)
	case "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "day":
		return b.handleDay(ctx, msg, msg.CommandArguments())
	case "next":
		return b.handleShift(ctx, msg, 1)
	case "prev":
		return b.handleShift(ctx, msg, -1)
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "sort":
		return b.handleSort(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.Chat.ID)
		b.clearConfirmation(msg.Chat.ID)
		return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("👋 Hii %s!\n<b>I keep your daily to-do list.</b>\n\n%s", escape(s.user.FirstName()), helpText)
	if err := b.sendText(msg.Chat.ID, text); err != nil {
		return err
	}
	return b.repostBoard(s)
}

func (b *Bot) handleLogout(msg *tgbotapi.Message) error {
	if !b.closeSession(msg.Chat.ID) {
		return b.sendText(msg.Chat.ID, "You are not signed in. Send /start to begin.")
	}
	b.clearConversation(msg.Chat.ID)
	b.clearConfirmation(msg.Chat.ID)
	return b.sendTextWithRemove(msg.Chat.ID, "👋 Signed out. Reminders keep running; send /start to come back.")
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	return b.repostBoard(s)
}

func (b *Bot) handleDay(ctx context.Context, msg *tgbotapi.Message, arg string) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	day, err := parseDayArg(arg, s.board.Today(), s.board.State().Day)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Use a date like <code>2025-11-30</code>, or today / tomorrow / yesterday.")
	}
	if err := s.board.SelectDay(day); err != nil {
		return err
	}
	return b.repostBoard(s)
}

func (b *Bot) handleShift(ctx context.Context, msg *tgbotapi.Message, n int) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	if _, err := s.board.Shift(n); err != nil {
		return err
	}
	return b.repostBoard(s)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	task, ok := b.taskByIndex(s, msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give the task number from the list: /done 2")
	}
	return b.toggle(ctx, s, task.ID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	task, ok := b.taskByIndex(s, msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Give the task number from the list: /delete 2")
	}
	return b.askDeleteConfirmation(s, task)
}

func (b *Bot) handleSort(ctx context.Context, msg *tgbotapi.Message) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		return b.sendWithReplyMarkup(msg.Chat.ID, "Sort the list by:", sortKeyboard(s.board.State().Sort))
	}
	opt, err := service.ParseSortOption(arg)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Sort by default, dueTime or priority.")
	}
	s.board.SetSort(opt)
	return nil
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	s, err := b.ensureSession(ctx, msg.Chat.ID, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reports.DailySummary(ctx, s.user, s.board.State().Day)
	if err != nil {
		b.log.Printf("build report for %s: %v", s.user.ID, err)
		return b.sendText(msg.Chat.ID, failureText)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) toggle(ctx context.Context, s *session, id model.TaskID) error {
	day := s.board.State().Day
	done, err := b.planner.ToggleTask(ctx, s.user.ID, id, day)
	if err != nil {
		return b.reportError(s.chatID, "toggle task", err)
	}
	b.log.Printf("[info] task %s on %s done=%t user=%s", id, day, done, s.user.ID)
	return nil
}

func (b *Bot) taskByIndex(s *session, arg string) (model.Task, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return model.Task{}, false
	}
	return s.board.State().Task(n)
}

// reportError logs err and tells the user something went wrong without the
// details.
func (b *Bot) reportError(chatID int64, op string, err error) error {
	b.log.Printf("%s: %v", op, err)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return b.sendText(chatID, "That task no longer exists.")
	case errors.Is(err, model.ErrNotInScope):
		return b.sendText(chatID, "That task is not on the selected day.")
	case errors.Is(err, model.ErrValidation):
		return b.sendText(chatID, escape(err.Error()))
	default:
		return b.sendText(chatID, failureText)
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (model.User, error) {
	name := strings.TrimSpace(strings.Join([]string{from.FirstName, from.LastName}, " "))
	if name == "" {
		name = from.UserName
	}
	return b.users.Upsert(ctx, model.ProviderTelegram, strconv.FormatInt(from.ID, 10), name)
}

// ensureSession signs the chat in on first use and opens its board on today.
func (b *Bot) ensureSession(ctx context.Context, chatID int64, from *tgbotapi.User) (*session, error) {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	b.mu.Unlock()
	if ok {
		return s, nil
	}

	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return nil, err
	}
	brd := board.New(user.ID, b.planner, b.loc)
	if err := brd.SelectDay(brd.Today()); err != nil {
		brd.Close()
		return nil, err
	}

	b.mu.Lock()
	if existing, ok := b.sessions[chatID]; ok {
		b.mu.Unlock()
		brd.Close()
		return existing, nil
	}
	brd.SetOnline(b.online)
	s = &session{user: user, chatID: chatID, board: brd, done: make(chan struct{})}
	b.sessions[chatID] = s
	b.mu.Unlock()

	b.log.Printf("[info] session opened chat=%d user=%s", chatID, user.ID)
	go b.followBoard(s)
	return s, nil
}

func (b *Bot) closeSession(chatID int64) bool {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()
	if !ok {
		return false
	}
	s.board.Close()
	<-s.done
	b.log.Printf("[info] session closed chat=%d", chatID)
	return true
}

func (b *Bot) closeAll() {
	b.mu.Lock()
	ids := make([]int64, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	for _, id := range ids {
		b.closeSession(id)
	}
}

func (b *Bot) getConfirmation(chatID int64) (model.TaskID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.confirmations[chatID]
	return id, ok
}

func (b *Bot) setConfirmation(chatID int64, id model.TaskID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[chatID] = id
}

func (b *Bot) clearConfirmation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, chatID)
}

func (b *Bot) setConversation(chatID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[chatID] = state
}

func (b *Bot) getConversation(chatID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[chatID]
}

func (b *Bot) hasConversation(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[chatID]
	return ok
}

func (b *Bot) clearConversation(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, chatID)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}
