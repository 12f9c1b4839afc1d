package cli

import (
	"github.com/spf13/cobra"

	"focal-cli/internal/store"
)

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the local store directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := app.storeDir()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := (store.Local{Dir: dir}).Ensure(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"dir": dir}})
		},
	}
}
