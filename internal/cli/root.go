package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"focal-cli/internal/format"
	"focal-cli/internal/model"
	"focal-cli/internal/session"
	"focal-cli/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	UserID     string
	UserName   string
	ServerURL  string
	PrettyJSON bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "focal",
		Short:        "focal: research-project tracker with a Today focus list",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Demo mode (local-only storage, the default)
  focal projects create --title "Thesis"
  focal today list

  # Connected mode (shared backend + live updates)
  focal --server https://focal.example --user u-ada today list
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("FOCAL_DIR", ""), "Path to the local store dir (default: ~/.focal)")
	cmd.PersistentFlags().StringVar(&app.UserID, "user", envOr("FOCAL_USER", "local"), "User id")
	cmd.PersistentFlags().StringVar(&app.UserName, "user-name", envOr("FOCAL_USER_NAME", ""), "Display name for edit stamps")
	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", envOr("FOCAL_SERVER", ""), "Backend base URL (empty: demo mode)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newStagesCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newSubtasksCmd(app))
	cmd.AddCommand(newTodayCmd(app))
	cmd.AddCommand(newTagsCmd(app))
	cmd.AddCommand(newCommentsCmd(app))
	cmd.AddCommand(newNotificationsCmd(app))
	cmd.AddCommand(newScanCmd(app))

	return cmd
}

func (a *App) demoMode() bool {
	return strings.TrimSpace(a.ServerURL) == ""
}

func (a *App) storeDir() (string, error) {
	if a.Dir != "" {
		return a.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".focal"), nil
}

func (a *App) adapter() (store.Adapter, error) {
	if a.demoMode() {
		dir, err := a.storeDir()
		if err != nil {
			return nil, err
		}
		return store.Local{Dir: dir}, nil
	}
	return store.NewRemote(a.ServerURL), nil
}

// openSession hydrates a session for one CLI invocation. Notices (rolled
// back writes) print to stderr as non-blocking lines, never as command
// failures.
func openSession(cmd *cobra.Command, app *App) (*session.Session, error) {
	adapter, err := app.adapter()
	if err != nil {
		return nil, err
	}
	s := session.New(session.Config{
		User: model.UserContext{
			CurrentUserID: app.UserID,
			DisplayName:   app.UserName,
			IsDemoMode:    app.demoMode(),
		},
		Adapter: adapter,
		OnNotice: func(n session.Notice) {
			fmt.Fprintf(cmd.ErrOrStderr(), "notice: %s: %v\n", n.Message, n.Err)
		},
		// The system-notification sink; a desktop shell would badge, the CLI
		// prints to stderr so it never corrupts the JSON on stdout.
		OnSystemNotification: func(n model.Notification) {
			fmt.Fprintf(cmd.ErrOrStderr(), "overdue: %s\n", n.Message)
		},
	})
	if err := s.Start(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// closeSession waits for dispatched writes before the process exits.
func closeSession(s *session.Session) {
	s.Flush()
	_ = s.Close()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
