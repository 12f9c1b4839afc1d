package cli

import (
	"time"

	"focal-cli/internal/tree"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksDoneCmd(app))
	cmd.AddCommand(newTasksRenameCmd(app))
	cmd.AddCommand(newTasksReminderCmd(app))
	cmd.AddCommand(newTasksTagCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var project, title string
	var stage int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task to a stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			task, err := s.AddTask(project, stage, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			if task.ID == "" {
				return writeErr(cmd, errNotFound("stage", project))
			}
			return writeOut(cmd, app, map[string]any{"data": task})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id")
	cmd.Flags().IntVar(&stage, "stage", 0, "Stage index")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			p, ok := tree.FindLatest(s.Tree(), project)
			if !ok {
				return writeErr(cmd, errNotFound("project", project))
			}
			type row struct {
				Stage int    `json:"stage"`
				Task  any    `json:"task"`
				Title string `json:"stageTitle"`
			}
			var rows []row
			for si, st := range p.Stages {
				for _, task := range st.Tasks {
					rows = append(rows, row{Stage: si, Task: task, Title: st.Title})
				}
			}
			return writeOut(cmd, app, map[string]any{"data": rows})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTasksDoneCmd(app *App) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Mark a task done (or not done with --undo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			if err := s.CompleteTask(args[0], !undo); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "completed": !undo}})
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Clear the completion flag")
	return cmd
}

func newTasksRenameCmd(app *App) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "rename <task-id>",
		Short: "Rename a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			if err := s.EditTask(args[0], tree.Patch{Title: &title}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "title": title}})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTasksReminderCmd(app *App) *cobra.Command {
	var at string
	var clear bool

	cmd := &cobra.Command{
		Use:   "reminder <task-id>",
		Short: "Set or clear a task reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			var when time.Time
			if !clear {
				when, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return writeErr(cmd, err)
				}
			}
			if err := s.SetTaskReminder(args[0], when); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "reminder": at, "cleared": clear}})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Reminder time (RFC3339)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the reminder")
	return cmd
}

func newTasksTagCmd(app *App) *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "tag <task-id>",
		Short: "Replace a task's tag set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			if err := s.EditTask(args[0], tree.Patch{Tags: &tags}); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "tags": tags}})
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Tag ids")
	return cmd
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.DeleteTask(args[0])
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "deleted": true}})
		},
	}
}
