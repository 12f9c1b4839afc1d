package cli

import (
	"focal-cli/internal/tree"

	"github.com/spf13/cobra"
)

func newCommentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Comment commands",
	}
	cmd.AddCommand(newCommentsAddCmd(app))
	cmd.AddCommand(newCommentsListCmd(app))
	return cmd
}

func newCommentsAddCmd(app *App) *cobra.Command {
	var task, body string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Comment on a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			c, err := s.AddComment(task, body)
			if err != nil {
				return writeErr(cmd, err)
			}
			if c.ID == "" {
				return writeErr(cmd, errNotFound("task", task))
			}
			return writeOut(cmd, app, map[string]any{"data": c})
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Task id")
	cmd.Flags().StringVar(&body, "body", "", "Comment body")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newCommentsListCmd(app *App) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a task's comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			_, t, ok := tree.FindTask(s.Tree(), task)
			if !ok {
				return writeErr(cmd, errNotFound("task", task))
			}
			return writeOut(cmd, app, map[string]any{"data": t.Comments})
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "Task id")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}
