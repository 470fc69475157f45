package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"daily-todo/internal/bot"
	"daily-todo/internal/reachability"
	"daily-todo/internal/service"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective settings and whether the backend is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := openApp(ctx, cfg, newLogger(verboseFlag), nil)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.localUser(ctx)
		if err != nil {
			return err
		}
		monitor := reachability.NewMonitor(reachability.HTTPProbe{URL: a.cfg.ReachabilityURL}, a.cfg.ReachabilityInterval, a.log)
		state := "offline"
		if monitor.Poll(ctx) {
			state = "online"
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "user:          %s\n", user.DisplayName)
		fmt.Fprintf(out, "today:         %s\n", a.planner.Today())
		fmt.Fprintf(out, "timezone:      %s\n", a.cfg.Location)
		fmt.Fprintf(out, "database:      %s\n", a.cfg.DatabaseURL)
		fmt.Fprintf(out, "notifications: %s\n", onOff(a.cfg.Notifications))
		fmt.Fprintf(out, "backend:       %s (%s)\n", state, a.cfg.ReachabilityURL)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and fire reminders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.RequireTelegram(); err != nil {
			return err
		}
		logger := newLogger(true)
		scheduler := service.NewSchedulerService(cfg.Location, 0, logger)
		a, err := openApp(ctx, cfg, logger, scheduler)
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(ctx, a, scheduler)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, statusCmd)
}

func serve(ctx context.Context, a *app, scheduler *service.SchedulerService) error {
	scheduler.Start()
	defer scheduler.Stop()

	restored, err := a.planner.RestoreReminders(ctx)
	if err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	a.log.Printf("[info] %d reminders restored", restored)

	reports := service.NewReminderService(a.planner)
	telegramBot, err := bot.New(a.cfg.TelegramToken, a.users, a.planner, reports, a.log)
	if err != nil {
		return err
	}

	go telegramBot.DeliverReminders(ctx, scheduler.C())

	monitor := reachability.NewMonitor(reachability.HTTPProbe{URL: a.cfg.ReachabilityURL}, a.cfg.ReachabilityInterval, a.log)
	monitor.OnChange(telegramBot.SetOnline)
	if err := monitor.Start(ctx, scheduler); err != nil {
		return fmt.Errorf("start reachability monitor: %w", err)
	}

	if a.cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(a.cfg.ReportInterval, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Printf("report: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
	}

	a.log.Println("[info] daily todo bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	if n := scheduler.Dropped(); n > 0 {
		a.log.Printf("[warn] %d reminders dropped while the bot was busy", n)
	}
	a.log.Println("[info] shutdown complete")
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
