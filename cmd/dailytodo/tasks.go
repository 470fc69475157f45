package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

var (
	dayFlag      string
	dailyFlag    bool
	atFlag       string
	noTimeFlag   bool
	priorityFlag string
	descFlag     string
	titleFlag    string
	sortFlag     string
	moveFlag     string
)

func init() {
	addCmd.Flags().StringVarP(&dayFlag, "day", "d", "", "due day: today, tomorrow or YYYY-MM-DD (default today)")
	addCmd.Flags().BoolVar(&dailyFlag, "daily", false, "repeat every day")
	addCmd.Flags().StringVar(&atFlag, "at", "", "reminder time HH:MM")
	addCmd.Flags().StringVarP(&priorityFlag, "priority", "p", "", "high, medium or low")
	addCmd.Flags().StringVar(&descFlag, "desc", "", "description")
	addCmd.MarkFlagsMutuallyExclusive("day", "daily")

	listCmd.Flags().StringVarP(&dayFlag, "day", "d", "", "day to show (default today)")
	listCmd.Flags().StringVarP(&sortFlag, "sort", "s", "", "default, dueTime or priority")

	doneCmd.Flags().StringVarP(&dayFlag, "day", "d", "", "day the task is listed on (default today)")

	editCmd.Flags().StringVarP(&dayFlag, "day", "d", "", "day the task is listed on (default today)")
	editCmd.Flags().StringVar(&titleFlag, "title", "", "new title")
	editCmd.Flags().StringVar(&descFlag, "desc", "", "new description")
	editCmd.Flags().StringVar(&moveFlag, "move", "", "move a one-off task to another day")
	editCmd.Flags().BoolVar(&dailyFlag, "daily", false, "repeat every day")
	editCmd.Flags().StringVar(&atFlag, "at", "", "new reminder time HH:MM")
	editCmd.Flags().BoolVar(&noTimeFlag, "no-time", false, "drop the reminder time")
	editCmd.Flags().StringVarP(&priorityFlag, "priority", "p", "", "high, medium or low")
	editCmd.MarkFlagsMutuallyExclusive("at", "no-time")
	editCmd.MarkFlagsMutuallyExclusive("move", "daily")

	rmCmd.Flags().StringVarP(&dayFlag, "day", "d", "", "day the task is listed on (default today)")

	reportCmd.Flags().StringVarP(&dayFlag, "day", "d", "", "day to report on (default today)")

	rootCmd.AddCommand(addCmd, listCmd, doneCmd, editCmd, rmCmd, reportCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, a *app, user model.User) error {
			input := model.TaskInput{
				Title:       strings.Join(args, " "),
				Description: descFlag,
			}
			if dailyFlag {
				input.Schedule = model.EveryDay{}
			} else {
				day, err := resolveDay(a, dayFlag)
				if err != nil {
					return err
				}
				input.Schedule = model.OnDay{Day: day}
			}
			if atFlag != "" {
				clock, err := model.ParseClock(atFlag)
				if err != nil {
					return err
				}
				input.DueTime = model.Some(clock)
			}
			p, err := model.ParsePriority(priorityFlag)
			if err != nil {
				return err
			}
			input.Priority = p

			task, err := a.planner.AddTask(ctx, user.ID, input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", task.ID, task.Title)
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show the tasks of a day",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, a *app, user model.User) error {
			day, err := resolveDay(a, dayFlag)
			if err != nil {
				return err
			}
			opt, err := service.ParseSortOption(sortFlag)
			if err != nil {
				return err
			}
			summary, err := a.planner.DaySummary(ctx, user.ID, day, opt)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderDay(summary, a.cfg.Location))
			return nil
		})
	},
}

var doneCmd = &cobra.Command{
	Use:   "done <n|id>",
	Short: "Mark a task done for the day, or not done again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, a *app, user model.User) error {
			day, err := resolveDay(a, dayFlag)
			if err != nil {
				return err
			}
			task, err := resolveTask(ctx, a, user, day, args[0])
			if err != nil {
				return err
			}
			done, err := a.planner.ToggleTask(ctx, user.ID, task.ID, day)
			if err != nil {
				return err
			}
			state := "not done"
			if done {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s on %s\n", task.Title, state, day)
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <n|id>",
	Short: "Change a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, a *app, user model.User) error {
			day, err := resolveDay(a, dayFlag)
			if err != nil {
				return err
			}
			task, err := resolveTask(ctx, a, user, day, args[0])
			if err != nil {
				return err
			}
			patch, err := editPatch(cmd, a)
			if err != nil {
				return err
			}
			if patch.Empty() {
				return fmt.Errorf("%w: nothing to change", model.ErrValidation)
			}
			updated, err := a.planner.EditTask(ctx, user.ID, task.ID, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s %s\n", updated.ID, updated.Title)
			return nil
		})
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm <n|id>",
	Aliases: []string{"delete"},
	Short:   "Delete a task and its history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, a *app, user model.User) error {
			day, err := resolveDay(a, dayFlag)
			if err != nil {
				return err
			}
			task, err := resolveTask(ctx, a, user, day, args[0])
			if err != nil {
				return err
			}
			if err := a.planner.RemoveTask(ctx, user.ID, task.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", task.Title)
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize a day: what is left and what is done",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, func(ctx context.Context, a *app, user model.User) error {
			day, err := resolveDay(a, dayFlag)
			if err != nil {
				return err
			}
			summary, err := a.planner.DaySummary(ctx, user.ID, day, service.SortDueTime)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(user, summary, a.cfg.Location))
			return nil
		})
	},
}

// withUser opens the store without a scheduler and signs in the local user.
func withUser(cmd *cobra.Command, fn func(ctx context.Context, a *app, user model.User) error) error {
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
	return fn(ctx, a, user)
}

func resolveDay(a *app, raw string) (model.Day, error) {
	today := a.planner.Today()
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	return model.ParseDay(raw)
}

// resolveTask reads either a position in the day's default listing or a
// task id.
func resolveTask(ctx context.Context, a *app, user model.User, day model.Day, arg string) (model.Task, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		summary, err := a.planner.DaySummary(ctx, user.ID, day, service.SortDefault)
		if err != nil {
			return model.Task{}, err
		}
		if n < 1 || n > len(summary.Tasks) {
			return model.Task{}, fmt.Errorf("%w: no task %d on %s", model.ErrNotFound, n, day)
		}
		return summary.Tasks[n-1], nil
	}
	task, err := a.planner.Tasks().GetTask(ctx, model.TaskID(arg))
	if err != nil {
		return model.Task{}, err
	}
	if task.OwnerID != user.ID {
		return model.Task{}, fmt.Errorf("%w: task %s", model.ErrNotFound, arg)
	}
	return task, nil
}

func editPatch(cmd *cobra.Command, a *app) (model.TaskPatch, error) {
	var patch model.TaskPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		patch.Title = model.Some(titleFlag)
	}
	if flags.Changed("desc") {
		patch.Description = model.Some(descFlag)
	}
	if flags.Changed("move") {
		day, err := resolveDay(a, moveFlag)
		if err != nil {
			return patch, err
		}
		patch.Schedule = model.Some[model.Schedule](model.OnDay{Day: day})
	}
	if flags.Changed("daily") && dailyFlag {
		patch.Schedule = model.Some[model.Schedule](model.EveryDay{})
	}
	if flags.Changed("at") {
		clock, err := model.ParseClock(atFlag)
		if err != nil {
			return patch, err
		}
		patch.DueTime = model.Some(clock)
	}
	if noTimeFlag {
		patch.ClearDueTime = true
	}
	if flags.Changed("priority") {
		p, err := model.ParsePriority(priorityFlag)
		if err != nil {
			return patch, err
		}
		patch.Priority = model.Some(p)
	}
	return patch, nil
}
