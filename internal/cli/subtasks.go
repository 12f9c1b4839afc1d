package cli

import (
	"focal-cli/internal/tree"

	"github.com/spf13/cobra"
)

func newSubtasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtasks",
		Short: "Subtask commands",
	}
	cmd.AddCommand(newSubtasksAddCmd(app))
	cmd.AddCommand(newSubtasksDoneCmd(app))
	return cmd
}

func newSubtasksAddCmd(app *App) *cobra.Command {
	var task, title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a subtask to a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			sub, err := s.AddSubtask(task, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			if sub.ID == "" {
				return writeErr(cmd, errNotFound("task", task))
			}
			return writeOut(cmd, app, map[string]any{"data": sub})
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Parent task id")
	cmd.Flags().StringVar(&title, "title", "", "Subtask title")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newSubtasksDoneCmd(app *App) *cobra.Command {
	var task string
	var undo bool

	cmd := &cobra.Command{
		Use:   "done <subtask-id>",
		Short: "Mark a subtask done (or not done with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			done := !undo
			if err := s.EditSubtask(task, args[0], tree.Patch{Completed: &done}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "completed": done}})
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Parent task id")
	cmd.Flags().BoolVar(&undo, "undo", false, "Clear the completion flag")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}
