package cli

import (
	"github.com/spf13/cobra"
)

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification commands",
	}
	cmd.AddCommand(newNotificationsListCmd(app))
	cmd.AddCommand(newNotificationsReadCmd(app))
	cmd.AddCommand(newNotificationsDismissCmd(app))
	return cmd
}

func newNotificationsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)
			return writeOut(cmd, app, map[string]any{"data": s.Notifications()})
		},
	}
}

func newNotificationsReadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.MarkNotificationRead(args[0])
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "isRead": true}})
		},
	}
}

func newNotificationsDismissCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <notification-id>...",
		Short: "Delete notifications; their keys never regenerate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			s.DismissNotifications(args...)
			return writeOut(cmd, app, map[string]any{"data": s.Notifications()})
		},
	}
}
