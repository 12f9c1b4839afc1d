package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newScanCmd(app *App) *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run an overdue-reminder scan (once, or periodically with --watch)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeSession(s)

			if watch {
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				s.RunScan()
				s.StartScanner(ctx, interval)
				<-ctx.Done()
				return nil
			}

			fresh := s.RunScan()
			return writeOut(cmd, app, map[string]any{"data": fresh})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep scanning until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Tick cadence for --watch")
	return cmd
}
