package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}
	return n
}

func setupRepos(t *testing.T) (*TaskRepository, *CompletionRepository, *UserRepository, *recordingPublisher) {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "todo-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	pub := &recordingPublisher{}
	return NewTaskRepository(db, pub), NewCompletionRepository(db, pub), NewUserRepository(db), pub
}

func oneOff(title string, day model.Day) model.TaskInput {
	return model.TaskInput{Title: title, Schedule: model.OnDay{Day: day}, Priority: model.PriorityLow}
}

func daily(title string) model.TaskInput {
	return model.TaskInput{Title: title, Schedule: model.EveryDay{}, Priority: model.PriorityLow}
}

func titles(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestTaskCreateAssignsIdentityAndOrder(t *testing.T) {
	tasks, _, _, pub := setupRepos(t)
	ctx := context.Background()

	first, err := tasks.Create(ctx, "owner-1", oneOff("first", "2024-06-01"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := tasks.Create(ctx, "owner-1", oneOff("second", "2024-06-01"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct store-assigned ids, got %q and %q", first.ID, second.ID)
	}
	if !second.CreatedAt.After(first.CreatedAt) {
		t.Fatalf("expected strictly increasing created_at: %s then %s", first.CreatedAt, second.CreatedAt)
	}
	if got := pub.count(live.TasksTopic("owner-1")); got != 2 {
		t.Fatalf("expected 2 task publishes, got %d", got)
	}

	list, err := tasks.ListForDay(ctx, "owner-1", "2024-06-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := titles(list); len(got) != 2 || got[0] != "second" || got[1] != "first" {
		t.Fatalf("expected newest first, got %v", got)
	}
}

func TestListForDayScope(t *testing.T) {
	tasks, _, _, _ := setupRepos(t)
	ctx := context.Background()

	mustCreate := func(owner string, in model.TaskInput) {
		t.Helper()
		if _, err := tasks.Create(ctx, owner, in); err != nil {
			t.Fatalf("create %q: %v", in.Title, err)
		}
	}
	mustCreate("owner-1", oneOff("Buy milk", "2024-06-01"))
	mustCreate("owner-1", daily("Stretch"))
	mustCreate("owner-1", oneOff("Dentist", "2024-06-02"))
	mustCreate("owner-2", daily("Someone else"))

	tests := []struct {
		day  model.Day
		want []string
	}{
		{"2024-06-01", []string{"Stretch", "Buy milk"}},
		{"2024-06-02", []string{"Dentist", "Stretch"}},
		{"2024-06-03", []string{"Stretch"}},
	}
	for _, tt := range tests {
		list, err := tasks.ListForDay(ctx, "owner-1", tt.day)
		if err != nil {
			t.Fatalf("list %s: %v", tt.day, err)
		}
		got := titles(list)
		if len(got) != len(tt.want) {
			t.Fatalf("day %s: got %v want %v", tt.day, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("day %s: got %v want %v", tt.day, got, tt.want)
			}
		}
	}
}

func TestTaskRoundTripsOptionalFields(t *testing.T) {
	tasks, _, _, _ := setupRepos(t)
	ctx := context.Background()

	in := daily("Stretch")
	in.DueTime = model.Some(model.ClockTime{Hour: 7})
	in.Priority = model.PriorityHigh
	created, err := tasks.Create(ctx, "owner-1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := tasks.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Daily() || got.DueDay().IsSet() {
		t.Fatalf("expected daily task without due day: %#v", got)
	}
	if clock, ok := got.DueTime.Get(); !ok || clock.String() != "07:00" {
		t.Fatalf("expected due time 07:00, got %#v", got.DueTime)
	}
	if got.Priority != model.PriorityHigh || got.Notification.IsSet() {
		t.Fatalf("unexpected stored task: %#v", got)
	}
}

func TestTaskUpdateMergesOnlySuppliedFields(t *testing.T) {
	tasks, _, _, _ := setupRepos(t)
	ctx := context.Background()

	in := oneOff("Buy milk", "2024-06-01")
	in.Description = "2 litres"
	in.DueTime = model.Some(model.ClockTime{Hour: 18, Minute: 30})
	created, err := tasks.Create(ctx, "owner-1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := tasks.Update(ctx, created.ID, model.TaskPatch{
		Priority:     model.Some(model.PriorityHigh),
		Notification: model.Some(model.NotificationHandle("handle-1")),
		ClearDueTime: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Priority != model.PriorityHigh || updated.DueTime.IsSet() {
		t.Fatalf("unexpected returned task: %#v", updated)
	}

	got, err := tasks.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Title != "Buy milk" || got.Description != "2 litres" {
		t.Fatalf("untouched fields changed: %#v", got)
	}
	if got.DueTime.IsSet() {
		t.Fatalf("expected due time cleared, got %#v", got.DueTime)
	}
	if h, ok := got.Notification.Get(); !ok || h != "handle-1" {
		t.Fatalf("expected stored handle, got %#v", got.Notification)
	}

	holder, err := tasks.FindByNotification(ctx, "handle-1")
	if err != nil || holder.ID != created.ID {
		t.Fatalf("expected handle-1 held by %s, got %s (%v)", created.ID, holder.ID, err)
	}
	if _, err := tasks.Update(ctx, created.ID, model.TaskPatch{ClearNotification: true}); err != nil {
		t.Fatalf("clear handle: %v", err)
	}
	if _, err := tasks.FindByNotification(ctx, "handle-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a released handle, got %v", err)
	}

	moved, err := tasks.Update(ctx, created.ID, model.TaskPatch{Schedule: model.Some[model.Schedule](model.EveryDay{})})
	if err != nil {
		t.Fatalf("make daily: %v", err)
	}
	if !moved.Daily() {
		t.Fatalf("expected daily after update: %#v", moved)
	}
}

func TestTaskUpdateAndDeleteMissing(t *testing.T) {
	tasks, _, _, _ := setupRepos(t)
	ctx := context.Background()

	if _, err := tasks.Update(ctx, "missing", model.TaskPatch{Title: model.Some("x")}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if _, err := tasks.Delete(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}

	created, err := tasks.Create(ctx, "owner-1", daily("Stretch"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := tasks.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tasks.FindByID(ctx, created.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCompletionUniquePerTaskAndDay(t *testing.T) {
	_, completions, _, pub := setupRepos(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := completions.Create(ctx, "owner-1", "task-1", "2024-06-01"); err != nil {
			t.Fatalf("create completion #%d: %v", i, err)
		}
	}
	if err := completions.Create(ctx, "owner-1", "task-1", "2024-06-02"); err != nil {
		t.Fatalf("create second day: %v", err)
	}

	n, err := completions.countForTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected one entry per day (2), got %d", n)
	}

	_, found, err := completions.Find(ctx, "task-1", "2024-06-01")
	if err != nil || !found {
		t.Fatalf("expected entry for 2024-06-01, found=%t err=%v", found, err)
	}

	day, err := completions.ListForDay(ctx, "owner-1", "2024-06-02")
	if err != nil {
		t.Fatalf("list day: %v", err)
	}
	if len(day) != 1 || day[0].TaskID != "task-1" {
		t.Fatalf("unexpected entries: %#v", day)
	}

	removed, err := completions.DeleteForTask(ctx, "owner-1", "task-1")
	if err != nil {
		t.Fatalf("delete for task: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if pub.count(live.CompletionsTopic("owner-1")) == 0 {
		t.Fatal("expected completion publishes")
	}
}

func TestUserUpsert(t *testing.T) {
	_, _, users, _ := setupRepos(t)
	ctx := context.Background()

	first, err := users.Upsert(ctx, model.ProviderTelegram, "42", "Ada Lovelace")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	again, err := users.Upsert(ctx, model.ProviderTelegram, "42", "Ada King")
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if first.ID != again.ID {
		t.Fatalf("expected stable user id, got %q then %q", first.ID, again.ID)
	}
	if again.DisplayName != "Ada King" || again.FirstName() != "Ada" {
		t.Fatalf("unexpected display name: %#v", again)
	}

	local, err := users.Upsert(ctx, model.ProviderLocal, "42", "local 42")
	if err != nil {
		t.Fatalf("upsert local: %v", err)
	}
	if local.ID == first.ID {
		t.Fatal("identities from different providers must not collide")
	}

	telegramUsers, err := users.ListByProvider(ctx, model.ProviderTelegram)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(telegramUsers) != 1 {
		t.Fatalf("expected 1 telegram user, got %d", len(telegramUsers))
	}
	if _, err := users.FindByID(ctx, "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
