package cli

import (
	"focal-cli/internal/today"

	"github.com/spf13/cobra"
)

func newTodayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Today focus-list commands",
	}
	cmd.AddCommand(newTodayListCmd(app))
	cmd.AddCommand(newTodayAddCmd(app))
	cmd.AddCommand(newTodayAddTaskCmd(app))
	cmd.AddCommand(newTodayAddSubtaskCmd(app))
	cmd.AddCommand(newTodayDoneCmd(app))
	cmd.AddCommand(newTodayRemoveCmd(app))
	cmd.AddCommand(newTodayDuplicateCmd(app))
	cmd.AddCommand(newTodayReorderCmd(app))
	cmd.AddCommand(newTodayRenameCmd(app))
	cmd.AddCommand(newTodayReactivateCmd(app))
	return cmd
}

func newTodayListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List Today items (active first, newest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)
			return writeOut(cmd, app, map[string]any{"data": s.Today()})
		},
	}
}

// duplicateOut reports a duplicate hit as data, not as an error: the
// three-way choice (reactivate / duplicate anyway / cancel) belongs to the
// user, so the command surfaces the existing entry and the flags that
// resolve it.
func duplicateOut(cmd *cobra.Command, app *App, hit *today.DuplicateHit) error {
	return writeOut(cmd, app, map[string]any{"data": map[string]any{
		"duplicate": hit.Item,
		"done":      hit.Done,
		"hint":      "re-run with --force to add anyway, or `focal today reactivate " + hit.Item.ID + "`",
	}})
}

func newTodayAddCmd(app *App) *cobra.Command {
	var title string
	var force bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a standalone Today item",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			item, hit, err := s.TodayAddStandalone(title, force)
			if err != nil {
				return writeErr(cmd, err)
			}
			if hit != nil {
				return duplicateOut(cmd, app, hit)
			}
			return writeOut(cmd, app, map[string]any{"data": item})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Item text")
	cmd.Flags().BoolVar(&force, "force", false, "Add even if a duplicate exists")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTodayAddTaskCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add-task <task-id>",
		Short: "Add a linked copy of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			if force {
				item, err := s.TodayAddTaskForced(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				if item == nil {
					return writeErr(cmd, errNotFound("task", args[0]))
				}
				return writeOut(cmd, app, map[string]any{"data": item})
			}

			item, hit, err := s.TodayAddTask(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if hit != nil {
				return duplicateOut(cmd, app, hit)
			}
			if item == nil {
				return writeErr(cmd, errNotFound("task", args[0]))
			}
			return writeOut(cmd, app, map[string]any{"data": item})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Add even if a duplicate exists")
	return cmd
}

func newTodayAddSubtaskCmd(app *App) *cobra.Command {
	var task string
	var force bool

	cmd := &cobra.Command{
		Use:   "add-subtask <subtask-id>",
		Short: "Add a linked copy of a subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			if force {
				item, err := s.TodayAddSubtaskForced(task, args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				if item == nil {
					return writeErr(cmd, errNotFound("subtask", args[0]))
				}
				return writeOut(cmd, app, map[string]any{"data": item})
			}

			item, hit, err := s.TodayAddSubtask(task, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if hit != nil {
				return duplicateOut(cmd, app, hit)
			}
			if item == nil {
				return writeErr(cmd, errNotFound("subtask", args[0]))
			}
			return writeOut(cmd, app, map[string]any{"data": item})
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Parent task id")
	cmd.Flags().BoolVar(&force, "force", false, "Add even if a duplicate exists")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func newTodayDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <item-id>",
		Short: "Toggle a Today item's done flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.TodayToggle(args[0])
			return writeOut(cmd, app, map[string]any{"data": s.Today()})
		},
	}
}

func newTodayRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <item-id>...",
		Short: "Remove Today items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.TodayRemove(args...)
			return writeOut(cmd, app, map[string]any{"data": s.Today()})
		},
	}
}

func newTodayDuplicateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <item-id>...",
		Short: "Duplicate Today items (fresh ids, reset completion)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.TodayDuplicate(args...)
			return writeOut(cmd, app, map[string]any{"data": s.Today()})
		},
	}
}

func newTodayReorderCmd(app *App) *cobra.Command {
	var from, to int

	cmd := &cobra.Command{
		Use:   "reorder",
		Short: "Move a Today item to a new position",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.TodayReorder(from, to)
			return writeOut(cmd, app, map[string]any{"data": s.Today()})
		},
	}

	cmd.Flags().IntVar(&from, "from", 0, "Current index")
	cmd.Flags().IntVar(&to, "to", 0, "Target index")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTodayRenameCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <item-id>",
		Short: "Rename a Today item (linked copies propagate to the source)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			if err := s.TodayRename(args[0], title); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "title": title}})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New text")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTodayReactivateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate <item-id>",
		Short: "Clear a done Today item's flag instead of adding a duplicate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.TodayReactivate(args[0])
			return writeOut(cmd, app, map[string]any{"data": s.Today()})
		},
	}
}
