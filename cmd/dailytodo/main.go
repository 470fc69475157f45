// Command dailytodo runs the to-do bot and manages the local task list.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"daily-todo/internal/config"
	"daily-todo/internal/live"
	"daily-todo/internal/model"
	"daily-todo/internal/repository"
	"daily-todo/internal/service"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dailytodo: %v\n", err)
		os.Exit(1)
	}
}

var (
	configFlag  string
	userFlag    string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "dailytodo",
	Short:         "A daily to-do list with reminders",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to a TOML config file (default $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "local user to act as")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log to stderr")
}

// app is the wired service graph one command works with.
type app struct {
	cfg     config.Config
	db      *gorm.DB
	users   *repository.UserRepository
	planner *service.Planner
	log     *log.Logger
}

func loadConfig() (config.Config, error) {
	return config.Load(config.Path(configFlag))
}

// newLogger writes to stderr when asked to, and nowhere otherwise.
func newLogger(verbose bool) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

// openApp opens the store and wires the services. Without a scheduler no
// reminders are bound; serve restores them on its next start.
func openApp(ctx context.Context, cfg config.Config, logger *log.Logger, sched service.NotificationScheduler) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	hub := live.NewHub()
	taskRepo := repository.NewTaskRepository(db, hub)
	completionRepo := repository.NewCompletionRepository(db, hub)

	var binder *service.NotificationBinder
	if sched != nil {
		perm := service.DenyNotifications
		if cfg.Notifications {
			perm = service.AllowNotifications
		}
		binder = service.NewNotificationBinder(ctx, sched, perm, cfg.Location, logger)
	}

	tasks := service.NewTaskService(taskRepo, hub)
	ledger := service.NewLedgerService(completionRepo, taskRepo, hub)

	return &app{
		cfg:     cfg,
		db:      db,
		users:   repository.NewUserRepository(db),
		planner: service.NewPlanner(tasks, ledger, binder, cfg.Location, logger),
		log:     logger,
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// localUser signs in the CLI identity, creating it on first use.
func (a *app) localUser(ctx context.Context) (model.User, error) {
	name := strings.TrimSpace(userFlag)
	if name == "" {
		name = a.cfg.LocalUser
	}
	return a.users.Upsert(ctx, model.ProviderLocal, name, name)
}
