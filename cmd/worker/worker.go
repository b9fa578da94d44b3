package worker

import "github.com/spf13/cobra"

// NewWorkerCmd returns the parent "worker" command.
func NewWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the reminder job once or on a schedule",
	}
	// attach subcommands
	cmd.AddCommand(notifyCmd)
	cmd.AddCommand(scheduleCmd)

	return cmd
}
