package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send today's visa expiry reminders once",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := newNotifier(cmd)
		if err != nil {
			return err
		}
		defer n.Close()

		// graceful shutdown: stop between customers
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sum, err := n.run(ctx)
		if err != nil {
			return fmt.Errorf("notification run %s: %w", sum.RunID, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), ">> run %s date=%s candidates=%d sent=%d failed=%d skipped=%d\n",
			sum.RunID, sum.Date, sum.Candidates, sum.Sent, sum.Failed, sum.Skipped)
		return nil
	},
}
