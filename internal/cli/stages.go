package cli

import (
	"focal-cli/internal/tree"

	"github.com/spf13/cobra"
)

func newStagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Stage commands",
	}
	cmd.AddCommand(newStagesAddCmd(app))
	cmd.AddCommand(newStagesListCmd(app))
	return cmd
}

func newStagesAddCmd(app *App) *cobra.Command {
	var project, title string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a stage to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			st, err := s.AddStage(project, title)
			if err != nil {
				return writeErr(cmd, err)
			}
			if st.ID == "" {
				return writeErr(cmd, errNotFound("project", project))
			}
			return writeOut(cmd, app, map[string]any{"data": st})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id")
	cmd.Flags().StringVar(&title, "title", "", "Stage title")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newStagesListCmd(app *App) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's stages",
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
			return writeOut(cmd, app, map[string]any{"data": p.Stages})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
